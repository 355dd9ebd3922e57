package spawn

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// resolveCredential maps user and group names to a process credential.
// It returns nil when both are empty, meaning the worker inherits ours.
// A missing group falls back to the user's primary group.
func resolveCredential(userName, groupName string) (*syscall.Credential, error) {
	if userName == "" && groupName == "" {
		return nil, nil
	}

	uid := uint32(os.Getuid())
	gid := uint32(os.Getgid())

	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return nil, fmt.Errorf("lookup user %q: %w", userName, err)
		}
		if uid, err = parseID(u.Uid); err != nil {
			return nil, fmt.Errorf("user %q: %w", userName, err)
		}
		if gid, err = parseID(u.Gid); err != nil {
			return nil, fmt.Errorf("user %q: %w", userName, err)
		}
	}

	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		if gid, err = parseID(g.Gid); err != nil {
			return nil, fmt.Errorf("group %q: %w", groupName, err)
		}
	}

	return &syscall.Credential{
		Uid: uid,
		Gid: gid,
		// setgroups needs CAP_SETGID
		NoSetGroups: os.Getuid() != 0,
	}, nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(id), nil
}
