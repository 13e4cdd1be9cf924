package store

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path by first writing to a temp file in the
// same directory, then renaming it into place, so a crash mid-write never
// leaves a partial file at path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
