package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

const settingsFileMode os.FileMode = 0o644

// writeFileAtomic stages data in a sibling temp file and renames it over
// the target. When the filesystem refuses an overwriting rename, the
// existing file is parked as a backup and restored if the swap fails.
func writeFileAtomic(fs afero.Fs, targetPath string, data []byte) error {
	tempPath, err := freeSiblingPath(fs, targetPath, ".tmp")
	if err != nil {
		return err
	}

	if err := afero.WriteFile(fs, tempPath, data, settingsFileMode); err != nil {
		return err
	}

	renameErr := fs.Rename(tempPath, targetPath)
	if renameErr == nil {
		return nil
	}

	exists, existsErr := afero.Exists(fs, targetPath)
	if existsErr != nil {
		return discardTemp(fs, tempPath, existsErr)
	}
	if !exists {
		return discardTemp(fs, tempPath, renameErr)
	}

	return swapViaBackup(fs, tempPath, targetPath)
}

func swapViaBackup(fs afero.Fs, tempPath string, targetPath string) error {
	backupPath, err := freeSiblingPath(fs, targetPath, ".bak")
	if err != nil {
		return discardTemp(fs, tempPath, err)
	}

	if err := fs.Rename(targetPath, backupPath); err != nil {
		return discardTemp(fs, tempPath, err)
	}

	if err := fs.Rename(tempPath, targetPath); err != nil {
		if rollbackErr := fs.Rename(backupPath, targetPath); rollbackErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to restore %s: %w", targetPath, rollbackErr))
		}
		return discardTemp(fs, tempPath, err)
	}

	if err := removeIfExists(fs, backupPath); err != nil {
		return fmt.Errorf("failed to remove backup %s: %w", backupPath, err)
	}

	return nil
}

// freeSiblingPath finds an unused path next to the target so a crashed
// earlier run never gets overwritten.
func freeSiblingPath(fs afero.Fs, targetPath string, suffix string) (string, error) {
	base := targetPath + ".cmt" + suffix

	candidate := base
	for attempt := 1; attempt <= 100; attempt++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.%d", base, attempt)
	}

	return "", fmt.Errorf("no free sibling path for %s", targetPath)
}

func removeIfExists(fs afero.Fs, path string) error {
	err := fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func discardTemp(fs afero.Fs, tempPath string, cause error) error {
	if err := removeIfExists(fs, tempPath); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to remove temp file %s: %w", tempPath, err))
	}
	return cause
}
