package version

import (
	"runtime/debug"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	info := Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc1234"},
			{Key: "vcs.time", Value: "2025-01-27T10:30:00Z"},
		},
	})

	if info.Version != "v1.2.3" || info.GitCommit != "abc1234" || info.BuildDate != "2025-01-27T10:30:00Z" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestLdflagsWin(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "deadbeef", BuildDate: "today"}
	fillFromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc1234"}},
	})

	if info.Version != "1.0.0" || info.GitCommit != "deadbeef" || info.BuildDate != "today" {
		t.Errorf("ldflags values overwritten: %+v", info)
	}
}

func TestDevelVersionIgnored(t *testing.T) {
	info := Info{Version: "dev"}
	fillFromBuildInfo(&info, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.GoVersion == "" || info.Platform == "" || info.Compiler == "" {
		t.Errorf("missing runtime fields: %+v", info)
	}
	if String() != info.Version {
		t.Errorf("String() = %q, want %q", String(), info.Version)
	}
}
