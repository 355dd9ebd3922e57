package spawn

import (
	"os"
	"os/user"
	"testing"
)

func TestResolveCredentialEmpty(t *testing.T) {
	cred, err := resolveCredential("", "")
	if err != nil || cred != nil {
		t.Errorf("resolveCredential(\"\", \"\") = %v, %v; want nil, nil", cred, err)
	}
}

func TestResolveCredentialCurrentUser(t *testing.T) {
	u, err := user.Current()
	if err != nil {
		t.Skipf("current user unavailable: %v", err)
	}

	cred, err := resolveCredential(u.Username, "")
	if err != nil {
		t.Fatalf("resolveCredential: %v", err)
	}
	if int(cred.Uid) != os.Getuid() {
		t.Errorf("Uid = %d, want %d", cred.Uid, os.Getuid())
	}
	if u.Gid != "" {
		if id, _ := parseID(u.Gid); cred.Gid != id {
			t.Errorf("Gid = %d, want %s", cred.Gid, u.Gid)
		}
	}
}

func TestResolveCredentialUnknownGroup(t *testing.T) {
	if _, err := resolveCredential("", "no-such-group-apppool"); err == nil {
		t.Error("expected error for unknown group")
	}
}

func TestParseIDInvalid(t *testing.T) {
	if _, err := parseID("abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
