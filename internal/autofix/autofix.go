// Package autofix applies the suggested remedies from scan results:
// rewriting outdated Complex Sorter INIs, deleting junk, renaming
// archives and misnamed folders.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

const logComponent = "autofix"

type handler func(problem *models.ProblemInfo) *models.AutofixResult

// Fixer applies fixes through an afero filesystem so fixes are testable
// and honor the same view of disk the scanner used.
type Fixer struct {
	fs       afero.Fs
	log      *logger.EngineLog
	handlers map[models.SolutionType]handler
}

func New(fs afero.Fs, log *logger.EngineLog) *Fixer {
	if log == nil {
		log = logger.NopEngineLog()
	}
	fixer := &Fixer{fs: fs, log: log}
	fixer.handlers = map[models.SolutionType]handler{
		models.ComplexSorterFix:      fixer.updateSorterINI,
		models.DeleteFile:            fixer.deleteFile,
		models.DeleteOrIgnoreFile:    fixer.deleteFile,
		models.RenameArchive:         fixer.renameArchive,
		models.ArchiveOrDeleteFile:   fixer.deleteListedFiles,
		models.ArchiveOrDeleteFolder: fixer.renameAnimTextData,
	}
	return fixer
}

// Fixable reports whether an automatic fix exists for the problem's
// suggested solution.
func (f *Fixer) Fixable(problem *models.ProblemInfo) bool {
	_, ok := f.handlers[problem.Solution]
	return ok
}

// Apply runs the fix for the problem's suggested solution and stamps the
// result onto the problem. Unknown solutions fail without touching disk.
func (f *Fixer) Apply(problem *models.ProblemInfo) *models.AutofixResult {
	fix, ok := f.handlers[problem.Solution]
	if !ok {
		result := &models.AutofixResult{Details: "No auto-fix available for this solution."}
		problem.AutofixResult = result
		return result
	}

	f.log.Info(logComponent, "running fix", map[string]any{
		"solution": problem.Solution.String(),
		"path":     problem.Path,
	})
	result := fix(problem)
	problem.AutofixResult = result

	if !result.Success {
		f.log.Warning(logComponent, "fix failed", map[string]any{
			"path":    problem.Path,
			"details": result.Details,
		})
	}
	return result
}

// Progress reports a batch step before the fix at index runs.
type Progress func(index int, total int, path string)

// ApplyAll runs fixes over problems in order, reporting progress and
// stopping between problems when ctx is cancelled. Results line up with
// the problems processed before the stop.
func (f *Fixer) ApplyAll(ctx context.Context, problems []*models.ProblemInfo, progress Progress) []*models.AutofixResult {
	results := make([]*models.AutofixResult, 0, len(problems))
	for i, problem := range problems {
		if ctx.Err() != nil {
			break
		}
		if progress != nil {
			progress(i, len(problems), problem.Path)
		}
		results = append(results, f.Apply(problem))
	}
	return results
}

const (
	outdatedField       = `FindNode OBTS(FindNode "Addon Index"`
	updatedField        = `FindNode OBTS(FindNode "Parent Combination Index"`
	outdatedFieldSingle = "FindNode OBTS(FindNode 'Addon Index'"
	updatedFieldSingle  = "FindNode OBTS(FindNode 'Parent Combination Index'"
)

// updateSorterINI rewrites the pre-4.1.5g field name in place, keeping
// the file's encoding and leaving a .bak copy beside it. Line endings are
// normalized and blank runs collapsed, like the INIs the patcher ships.
func (f *Fixer) updateSorterINI(problem *models.ProblemInfo) *models.AutofixResult {
	text, encoding, err := fileutils.ReadTextFileEncoding(f.fs, problem.Path)
	if err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	fixed := 0
	for i, line := range lines {
		if strings.HasPrefix(line, ";") {
			continue
		}
		if !strings.Contains(line, outdatedField) && !strings.Contains(line, outdatedFieldSingle) {
			continue
		}
		lines[i] = strings.ReplaceAll(strings.ReplaceAll(line, outdatedField, updatedField), outdatedFieldSingle, updatedFieldSingle)
		fixed++
		f.log.Info(logComponent, "updated outdated field name", map[string]any{
			"file": filepath.Base(problem.Path),
			"line": i + 1,
		})
	}

	if fixed == 0 {
		return &models.AutofixResult{Success: true, Details: "No fixes were needed."}
	}

	backup := f.createBackup(problem.Path)
	if err := fileutils.WriteTextFile(f.fs, problem.Path, strings.Join(lines, "\n")+"\n", encoding); err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}

	return &models.AutofixResult{
		Success: true,
		Details: fmt.Sprintf("All references to \"Addon Index\" updated to \"Parent Combination Index\".\n"+
			"INI Lines Fixed: %d", fixed),
		FilesAffected: []string{problem.Path},
		BackupCreated: backup,
	}
}

func (f *Fixer) deleteFile(problem *models.ProblemInfo) *models.AutofixResult {
	info, err := f.fs.Stat(problem.Path)
	if err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}
	if info.IsDir() {
		return &models.AutofixResult{Details: fmt.Sprintf("Path is not a file: %s", problem.Path)}
	}
	if err := f.fs.Remove(problem.Path); err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}

	return &models.AutofixResult{
		Success:       true,
		Details:       fmt.Sprintf("Deleted junk file: %s", filepath.Base(problem.Path)),
		FilesAffected: []string{problem.Path},
	}
}

func (f *Fixer) renameArchive(problem *models.ProblemInfo) *models.AutofixResult {
	target := strings.TrimSuffix(problem.Path, filepath.Ext(problem.Path)) + ".ba2"
	if exists, err := afero.Exists(f.fs, target); err == nil && exists {
		return &models.AutofixResult{
			Details: fmt.Sprintf("Cannot rename: %s already exists", filepath.Base(target)),
		}
	}
	if err := f.fs.Rename(problem.Path, target); err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}

	return &models.AutofixResult{
		Success:       true,
		Details:       fmt.Sprintf("Renamed to: %s", filepath.Base(target)),
		FilesAffected: []string{problem.Path, target},
	}
}

// deleteListedFiles removes every file a loose-previs finding listed.
// Missing entries are skipped; failures are collected rather than
// stopping, so one locked file does not strand the rest.
func (f *Fixer) deleteListedFiles(problem *models.ProblemInfo) *models.AutofixResult {
	if len(problem.FileList) == 0 {
		return &models.AutofixResult{Details: "No file list provided"}
	}

	var deleted []string
	failedCount := 0
	for _, entry := range problem.FileList {
		info, err := f.fs.Stat(entry.Path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := f.fs.Remove(entry.Path); err != nil {
			failedCount++
			f.log.Warning(logComponent, "delete failed", map[string]any{"path": entry.Path})
			continue
		}
		deleted = append(deleted, entry.Path)
	}

	if failedCount > 0 {
		return &models.AutofixResult{
			Details:       fmt.Sprintf("Deleted %d files, failed to delete %d files", len(deleted), failedCount),
			FilesAffected: deleted,
		}
	}
	return &models.AutofixResult{
		Success:       true,
		Details:       fmt.Sprintf("Successfully deleted %d loose previs files", len(deleted)),
		FilesAffected: deleted,
	}
}

// renameAnimTextData fixes the misnamed unpacked animation folder. Only
// the known misspelling is renamed; a correctly named folder needs to be
// archived instead, which is on the user.
func (f *Fixer) renameAnimTextData(problem *models.ProblemInfo) *models.AutofixResult {
	if !strings.EqualFold(filepath.Base(problem.Path), "animationtextdata") {
		return &models.AutofixResult{Details: "Folder name doesn't match expected pattern"}
	}

	target := filepath.Join(filepath.Dir(problem.Path), "AnimTextData")
	if exists, err := afero.Exists(f.fs, target); err == nil && exists {
		return &models.AutofixResult{Details: "Cannot rename: AnimTextData already exists"}
	}
	if err := f.fs.Rename(problem.Path, target); err != nil {
		return &models.AutofixResult{Details: failureDetails(err, problem.Path)}
	}

	return &models.AutofixResult{
		Success:       true,
		Details:       "Renamed folder to: AnimTextData",
		FilesAffected: []string{problem.Path, target},
	}
}

// createBackup copies the file aside before an edit, picking the first
// free .bak name. A failed backup is logged but never blocks the fix.
func (f *Fixer) createBackup(path string) string {
	backupPath := path + ".bak"
	for counter := 1; ; counter++ {
		exists, err := afero.Exists(f.fs, backupPath)
		if err != nil {
			return ""
		}
		if !exists {
			break
		}
		backupPath = fmt.Sprintf("%s.bak%d", path, counter)
	}

	data, err := afero.ReadFile(f.fs, path)
	if err == nil {
		err = afero.WriteFile(f.fs, backupPath, data, 0644)
	}
	if err != nil {
		f.log.Warning(logComponent, "backup failed", map[string]any{"path": path})
		return ""
	}

	f.log.Info(logComponent, "created backup", map[string]any{"path": backupPath})
	return backupPath
}

func failureDetails(err error, path string) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("File Not Found: %s", path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("File Access Denied: %s", path)
	default:
		return fmt.Sprintf("OSError: %s", path)
	}
}
