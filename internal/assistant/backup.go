package assistant

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeBackup overwrites path with the textual form of the history,
// going through a temp file and a rename.
func writeBackup(path, content string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".vocode-backup-*")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("chmod backup: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}
