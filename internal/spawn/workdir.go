package spawn

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// WorkDirEnv names the environment variable that points a loader at its
// work dir. The loader reads its startup arguments from $WorkDirEnv/args/*.
const WorkDirEnv = "APPPOOL_SPAWN_WORK_DIR"

// prepareWorkDir creates a private work dir under base holding one file per
// argument in args/. When cred is set the tree is handed to that user.
func prepareWorkDir(base string, args map[string]string, cred *syscall.Credential) (string, error) {
	dir, err := os.MkdirTemp(base, "apppool-spawn-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	if err := writeArgs(dir, args, cred); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func writeArgs(dir string, args map[string]string, cred *syscall.Credential) error {
	argsDir := filepath.Join(dir, "args")
	if err := os.Mkdir(argsDir, 0o700); err != nil {
		return fmt.Errorf("create args dir: %w", err)
	}

	paths := []string{dir, argsDir}
	for name, value := range args {
		path := filepath.Join(argsDir, name)
		if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
			return fmt.Errorf("write arg %s: %w", name, err)
		}
		paths = append(paths, path)
	}

	if cred == nil || os.Getuid() != 0 {
		return nil
	}
	for _, p := range paths {
		if err := os.Chown(p, int(cred.Uid), int(cred.Gid)); err != nil {
			return fmt.Errorf("chown %s: %w", p, err)
		}
	}
	return nil
}
