// Package downgrade switches the game and Creation Kit binaries between
// the Old-Gen and Next-Gen releases. Binaries are identified by CRC32,
// moved aside into version-named backups, and recreated either from a
// CRC-valid backup of the desired version or by applying a downloaded
// VCDIFF delta to the backup of the current version.
package downgrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	pkgErrors "github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/environment"
	"github.com/collective-modding/cm-toolkit/internal/hashcache"
	"github.com/collective-modding/cm-toolkit/internal/httpclient"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

const logComponent = "downgrade"

// Group separates the game binaries from the Creation Kit binaries.
type Group string

const (
	GroupGame        Group = "Game"
	GroupCreationKit Group = "Creation Kit"
)

type target struct {
	rel   string
	group Group
	crcs  map[string]models.InstallType
}

// Targets are checked in this order. CRCs identify the retail Steam
// builds; GOG and pirated binaries read as Unknown and are left alone by
// the skip logic only when already at the desired version.
func targets() []target {
	return []target{
		{rel: "Fallout4.exe", group: GroupGame, crcs: map[string]models.InstallType{
			"C6053902": models.OG,
			"C5965A2E": models.NG,
		}},
		{rel: "Fallout4Launcher.exe", group: GroupGame, crcs: map[string]models.InstallType{
			"02445570": models.OG,
			"F6A06FF5": models.NG,
		}},
		{rel: "steam_api64.dll", group: GroupGame, crcs: map[string]models.InstallType{
			"BBD912FC": models.OG,
			"E36E7B4D": models.NG,
		}},
		{rel: "CreationKit.exe", group: GroupCreationKit, crcs: map[string]models.InstallType{
			"0F5C065B": models.OG,
			"481CCE95": models.NG,
		}},
		{rel: "Tools/Archive2/Archive2.exe", group: GroupCreationKit, crcs: map[string]models.InstallType{
			"4CDFC7B5": models.OG,
			"71A5240B": models.NG,
		}},
		{rel: "Tools/Archive2/Archive2Interop.dll", group: GroupCreationKit, crcs: map[string]models.InstallType{
			"850D36A9": models.OG,
			"EFBE3622": models.NG,
		}},
	}
}

// knownCRCs collects every CRC belonging to the given generation, across
// all targets. Backups are validated against this set rather than the
// per-file one, matching how backups of renamed files are accepted.
func knownCRCs(desired models.InstallType) map[string]bool {
	out := make(map[string]bool)
	for _, t := range targets() {
		for crc, installType := range t.crcs {
			if installType == desired {
				out[crc] = true
			}
		}
	}
	return out
}

// FileVersion is one binary's detected generation.
type FileVersion struct {
	Name    string
	Group   Group
	Install models.InstallType
}

// Outcome classifies one step of a patch run.
type Outcome string

const (
	OutcomeSkipped Outcome = "Skipped"
	OutcomePatched Outcome = "Patched"
	OutcomeFailed  Outcome = "Failed"
)

// StepResult is one log line of a patch run.
type StepResult struct {
	Name    string
	Outcome Outcome
	Message string
}

// DeltaDecoder applies a VCDIFF patch to a source file. *xdelta.Codec
// satisfies it.
type DeltaDecoder interface {
	Decode(ctx context.Context, sourceFile string, patchFile string, outputFile string) error
}

// Hasher computes file digests. *hashcache.Cache satisfies it; a nil
// cache still works and computes directly.
type Hasher interface {
	CRC32(ctx context.Context, fs afero.Fs, path string) (string, error)
}

// Options select the desired generation and cleanup behavior for a run.
type Options struct {
	// Desired is models.OG or models.NG.
	Desired models.InstallType
	// KeepBackups preserves the moved-aside binaries and restores by
	// copying instead of renaming.
	KeepBackups bool
	// DeleteDeltas removes each downloaded .xdelta after a successful
	// patch.
	DeleteDeltas bool
	// PatchDir is where deltas are stored and reused. Empty means the
	// working directory.
	PatchDir string
	// BaseURL overrides the release download location.
	BaseURL string
	// Progress receives download progress messages.
	Progress httpclient.Sender
}

// Downgrader patches the binaries under one install root.
type Downgrader struct {
	fs       afero.Fs
	gamePath string
	hashes   Hasher
	client   httpclient.Doer
	codec    DeltaDecoder
	log      *logger.EngineLog
}

// New builds a downgrader for the install at gamePath. A nil log discards
// engine logging.
func New(fs afero.Fs, gamePath string, hashes Hasher, client httpclient.Doer, codec DeltaDecoder, log *logger.EngineLog) *Downgrader {
	if log == nil {
		log = logger.NopEngineLog()
	}
	if hashes == nil {
		hashes = (*hashcache.Cache)(nil)
	}
	return &Downgrader{
		fs:       fs,
		gamePath: gamePath,
		hashes:   hashes,
		client:   client,
		codec:    codec,
		log:      log,
	}
}

// Versions detects the installed generation of every known binary, in
// display order. Missing files read as NotFound, unrecognized or
// unreadable ones as Unknown.
func (d *Downgrader) Versions(ctx context.Context) []FileVersion {
	versions := make([]FileVersion, 0, len(targets()))
	for _, t := range targets() {
		filePath := filepath.Join(d.gamePath, filepath.FromSlash(t.rel))

		isFile, err := d.isFile(filePath)
		if err != nil || !isFile {
			install := models.NotFound
			if err != nil {
				install = models.Unknown
			}
			versions = append(versions, FileVersion{Name: t.rel, Group: t.group, Install: install})
			continue
		}

		crc, err := d.hashes.CRC32(ctx, d.fs, filePath)
		if err != nil {
			d.log.Warning(logComponent, "hashing failed", map[string]any{
				"file":  filePath,
				"error": err.Error(),
			})
			versions = append(versions, FileVersion{Name: t.rel, Group: t.group, Install: models.Unknown})
			continue
		}

		install, known := t.crcs[crc]
		if !known {
			install = models.Unknown
		}
		versions = append(versions, FileVersion{Name: t.rel, Group: t.group, Install: install})
	}
	return versions
}

type download struct {
	url     string
	infile  string
	outfile string
}

// Run patches every known binary toward the desired generation. Files
// already at the desired version or missing entirely are skipped;
// unrecognized versions are still moved aside and patched, and fail at
// the delta stage if the binary truly is foreign. Results arrive in the
// order work happened: the backup/restore pass first, then one entry per
// downloaded patch.
func (d *Downgrader) Run(ctx context.Context, options Options) ([]StepResult, error) {
	if options.Desired != models.OG && options.Desired != models.NG {
		return nil, pkgErrors.Errorf("unsupported target version: %s", options.Desired)
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = environment.PatchBaseURL()
	}
	patchDir := options.PatchDir
	if patchDir == "" {
		patchDir = "."
	}

	var results []StepResult
	var queue []download

	for _, version := range d.Versions(ctx) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := path.Base(version.Name)

		switch version.Install {
		case options.Desired:
			results = append(results, StepResult{
				Name:    name,
				Outcome: OutcomeSkipped,
				Message: fmt.Sprintf("Skipped %s: Already %s.", name, options.Desired),
			})
			continue
		case models.NotFound:
			results = append(results, StepResult{
				Name:    name,
				Outcome: OutcomeSkipped,
				Message: fmt.Sprintf("Skipped %s: Not Found.", name),
			})
			continue
		}

		filePath := filepath.Join(d.gamePath, filepath.FromSlash(version.Name))
		restored, pending, err := d.stage(ctx, filePath, baseURL, options)
		if err != nil {
			d.log.Warning(logComponent, "staging failed", map[string]any{
				"file":  filePath,
				"error": err.Error(),
			})
			results = append(results, StepResult{
				Name:    name,
				Outcome: OutcomeFailed,
				Message: fmt.Sprintf("Failed patching %s: %s", name, err),
			})
			continue
		}
		if restored {
			results = append(results, StepResult{
				Name:    name,
				Outcome: OutcomePatched,
				Message: fmt.Sprintf("Patched %s", name),
			})
		}
		if pending != nil {
			queue = append(queue, *pending)
		}
	}

	for _, dl := range queue {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, d.downloadAndPatch(ctx, dl, patchDir, options))
	}

	return results, nil
}

// stage moves the current binary aside and restores the desired version
// from backup when a CRC-valid one exists. When no backup can serve, it
// returns the delta download that will rebuild the file.
func (d *Downgrader) stage(ctx context.Context, filePath string, baseURL string, options Options) (restored bool, pending *download, err error) {
	name := filepath.Base(filePath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	dir := filepath.Dir(filePath)

	// _upgradeBackup is the Old-Gen binary saved by an upgrade run;
	// _downgradeBackup is the Next-Gen binary saved by a downgrade run.
	backupOG := filepath.Join(dir, stem+"_upgradeBackup"+ext)
	backupNG := filepath.Join(dir, stem+"_downgradeBackup"+ext)

	var direction, desiredBackup, currentBackup string
	if options.Desired == models.OG {
		direction = "NG-to-OG-"
		desiredBackup = backupOG
		currentBackup = backupNG
	} else {
		direction = "OG-to-NG-"
		desiredBackup = backupNG
		currentBackup = backupOG
	}

	if err := d.clearReadOnly(filePath); err != nil {
		return false, nil, err
	}

	// A stale backup of the current version is recycled: keep it when it
	// matches the binary byte for byte, replace it otherwise.
	currentExists, err := d.isFile(currentBackup)
	if err != nil {
		return false, nil, err
	}
	if currentExists {
		backupCRC, err := d.hashes.CRC32(ctx, d.fs, currentBackup)
		if err != nil {
			return false, nil, err
		}
		fileCRC, err := d.hashes.CRC32(ctx, d.fs, filePath)
		if err != nil {
			return false, nil, err
		}
		if backupCRC == fileCRC {
			if err := d.fs.Remove(filePath); err != nil {
				return false, nil, err
			}
		} else if err := d.fs.Remove(currentBackup); err != nil {
			return false, nil, err
		}
	}

	fileExists, err := d.isFile(filePath)
	if err != nil {
		return false, nil, err
	}
	if fileExists {
		if err := d.fs.Rename(filePath, currentBackup); err != nil {
			return false, nil, err
		}
	}

	desiredExists, err := d.isFile(desiredBackup)
	if err != nil {
		return false, nil, err
	}
	if desiredExists {
		crc, err := d.hashes.CRC32(ctx, d.fs, desiredBackup)
		if err != nil {
			return false, nil, err
		}
		if knownCRCs(options.Desired)[crc] {
			if options.KeepBackups {
				if err := d.copyFile(desiredBackup, filePath); err != nil {
					return false, nil, err
				}
			} else if err := d.fs.Rename(desiredBackup, filePath); err != nil {
				return false, nil, err
			}
			restored = true
		} else if err := d.fs.Remove(desiredBackup); err != nil {
			return false, nil, err
		}
	}

	if !restored {
		return false, &download{
			url:     baseURL + direction + name + ".xdelta",
			infile:  currentBackup,
			outfile: filePath,
		}, nil
	}

	if !options.KeepBackups {
		if err := d.fs.Remove(currentBackup); err != nil {
			return false, nil, err
		}
	}
	return true, nil, nil
}

// downloadAndPatch fetches the delta unless a prior run left it behind,
// then rebuilds the binary from the current-version backup.
func (d *Downgrader) downloadAndPatch(ctx context.Context, dl download, patchDir string, options Options) StepResult {
	name := filepath.Base(dl.outfile)
	patchPath := filepath.Join(patchDir, patchName(dl.url))

	patchExists, err := d.isFile(patchPath)
	if err == nil && !patchExists {
		d.log.Info(logComponent, "downloading patch", map[string]any{"url": dl.url})
		if err := httpclient.DownloadFile(ctx, dl.url, patchPath, d.client, options.Progress, d.fs); err != nil {
			d.log.Warning(logComponent, "patch download failed", map[string]any{
				"url":   dl.url,
				"error": err.Error(),
			})
			return StepResult{
				Name:    name,
				Outcome: OutcomeFailed,
				Message: fmt.Sprintf("Download failed: %s", err),
			}
		}
	}

	if err := d.codec.Decode(ctx, dl.infile, patchPath, dl.outfile); err != nil {
		d.log.Warning(logComponent, "patch failed", map[string]any{
			"file":  dl.outfile,
			"patch": patchPath,
			"error": err.Error(),
		})
		return StepResult{
			Name:    name,
			Outcome: OutcomeFailed,
			Message: fmt.Sprintf("Failed patching %s", name),
		}
	}

	// Cleanup failures never demote a successful patch.
	if !options.KeepBackups {
		if err := d.fs.Remove(dl.infile); err != nil {
			d.log.Warning(logComponent, "backup cleanup failed", map[string]any{
				"file":  dl.infile,
				"error": err.Error(),
			})
		}
	}
	if options.DeleteDeltas {
		if err := d.fs.Remove(patchPath); err != nil {
			d.log.Warning(logComponent, "delta cleanup failed", map[string]any{
				"file":  patchPath,
				"error": err.Error(),
			})
		}
	}

	return StepResult{
		Name:    name,
		Outcome: OutcomePatched,
		Message: fmt.Sprintf("Patched %s", name),
	}
}

func (d *Downgrader) isFile(filePath string) (bool, error) {
	info, err := d.fs.Stat(filePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// clearReadOnly makes filePath writable. Steam and some mod managers set
// the read-only attribute on game binaries.
func (d *Downgrader) clearReadOnly(filePath string) error {
	info, err := d.fs.Stat(filePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.Mode().Perm()&0o200 != 0 {
		return nil
	}
	return d.fs.Chmod(filePath, info.Mode().Perm()|0o200)
}

func (d *Downgrader) copyFile(source string, destination string) error {
	in, err := d.fs.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := d.fs.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// patchName is the delta's file name taken from its URL.
func patchName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(parsed.Path)
}
