package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// BackupSuffix is appended to the patched file's path to name its backup.
const BackupSuffix = ".bak"

// BackupPath returns the backup file name for path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// EnsureBackup writes original to path's backup file unless one already
// exists. The first backup is never overwritten, so it keeps the pristine
// bytes even after the file has been patched and backed up again.
func EnsureBackup(path string, original []byte) error {
	backupPath := BackupPath(path)

	f, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: cannot backup %s to %s: %w", ErrIO, path, backupPath, err)
	}

	if _, err := f.Write(original); err != nil {
		_ = f.Close()
		_ = os.Remove(backupPath)
		return fmt.Errorf("%w: cannot backup %s to %s: %w", ErrIO, path, backupPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(backupPath)
		return fmt.Errorf("%w: cannot backup %s to %s: %w", ErrIO, path, backupPath, err)
	}
	return nil
}
