// Package scanner walks a Fallout 4 setup looking for files that are
// misnamed, misplaced, junk, or known to break the game. A scan runs
// entirely off the caller's goroutine and reports through a channel of
// events; the caller owns nothing the scan touches.
package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/collective-modding/cm-toolkit/internal/game"
	"github.com/collective-modding/cm-toolkit/internal/logger"
	"github.com/collective-modding/cm-toolkit/internal/models"
)

// Problems are delivered in batches of at most this many so a slow
// consumer is never flooded one event per finding.
const batchSize = 10

const logComponent = "scanner"

// Scanner runs one scan over a detected game. A Scanner is single-use;
// build a new one for each run.
type Scanner struct {
	fs       afero.Fs
	game     *game.Game
	settings Settings
	overview []*models.ProblemInfo
	log      *logger.EngineLog

	filesScanned int
	foldersTotal int
	folderIndex  map[string]int
}

// New builds a scanner. overviewProblems are the findings of a prior
// overview pass, merged into the results when the OverviewIssues stage
// is enabled. A nil log discards engine logging.
func New(fs afero.Fs, g *game.Game, settings Settings, overviewProblems []*models.ProblemInfo, log *logger.EngineLog) *Scanner {
	if log == nil {
		log = logger.NopEngineLog()
	}
	return &Scanner{
		fs:          fs,
		game:        g,
		settings:    settings,
		overview:    overviewProblems,
		log:         log,
		folderIndex: make(map[string]int),
	}
}

// Run starts the scan and returns its event channel. The channel carries
// stage and progress events and problem batches, then exactly one Done,
// then closes. The caller must drain the channel until it closes, also
// after cancelling ctx; cancellation is observed within one directory's
// entries.
func (s *Scanner) Run(ctx context.Context) <-chan Event {
	events := make(chan Event)
	go s.run(ctx, events)
	return events
}

func (s *Scanner) run(ctx context.Context, events chan<- Event) {
	defer close(events)

	messages := make(chan Event)
	collected := make(chan int, 1)
	go s.collect(messages, events, collected)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(messages)
		return s.runStages(groupCtx, messages)
	})
	err := group.Wait()
	problemCount := <-collected

	s.log.Info(logComponent, "scan finished", map[string]any{
		"files_scanned":  s.filesScanned,
		"problems_found": problemCount,
		"cancelled":      err != nil,
	})

	events <- Done{
		Stats: Stats{FilesScanned: s.filesScanned, ProblemsFound: problemCount},
		Err:   err,
	}
}

// collect owns batching: it forwards stage and progress events as they
// come, gathers problems into batches, and flushes the partial batch when
// the stages finish. It reports the delivered problem count.
func (s *Scanner) collect(messages <-chan Event, events chan<- Event, collected chan<- int) {
	var batch []*models.ProblemInfo
	count := 0

	for message := range messages {
		found, ok := message.(problemFound)
		if !ok {
			events <- message
			continue
		}
		if s.suppressed(found.problem) {
			continue
		}
		count++
		batch = append(batch, found.problem)
		if len(batch) >= batchSize {
			events <- ProblemsFound{Problems: batch}
			batch = nil
		}
	}

	if len(batch) > 0 {
		events <- ProblemsFound{Problems: batch}
	}
	collected <- count
}

func (s *Scanner) runStages(ctx context.Context, messages chan<- Event) error {
	if s.settings.StageEnabled(models.ScanOverviewIssues) {
		for _, problem := range s.overview {
			if err := ctx.Err(); err != nil {
				return err
			}
			messages <- problemFound{problem: problem}
		}
	}

	if s.settings.StageEnabled(models.ScanErrors) {
		if err := s.scanComplexSorterINIs(ctx, messages); err != nil {
			return err
		}
	}

	if s.settings.StageEnabled(models.ScanRaceSubgraphs) {
		if err := s.scanRaceSubgraphs(ctx, messages); err != nil {
			return err
		}
	}

	if s.settings.SkipDataScan() {
		return nil
	}

	messages <- StageChanged{Stage: "Building mod file index..."}
	modFiles, err := s.buildModIndex(ctx)
	if err != nil {
		return err
	}

	return s.scanDataFolder(ctx, messages, modFiles)
}

// Signature identifies a problem on the ignore list: the problem type and
// the slash form of its relative path.
func Signature(problem *models.ProblemInfo) string {
	return problem.Type.String() + ":" + filepath.ToSlash(problem.RelativePath)
}

func (s *Scanner) suppressed(problem *models.ProblemInfo) bool {
	signature := Signature(problem)
	if s.settings.IgnoredProblems[signature] {
		return true
	}
	for _, pattern := range s.settings.IgnorePatterns {
		if wildcardMatch(pattern, signature) {
			return true
		}
	}
	return false
}

// wildcardMatch matches signatures against user ignore patterns: `*`
// matches any run of characters including separators, `?` exactly one.
// Case-insensitive, like the game's own path handling.
func wildcardMatch(pattern string, target string) bool {
	pattern = strings.ToLower(pattern)
	target = strings.ToLower(target)

	var match func(pi, ti int) bool
	match = func(pi, ti int) bool {
		for pi < len(pattern) {
			switch pattern[pi] {
			case '*':
				for skip := ti; skip <= len(target); skip++ {
					if match(pi+1, skip) {
						return true
					}
				}
				return false
			case '?':
				if ti >= len(target) {
					return false
				}
			default:
				if ti >= len(target) || pattern[pi] != target[ti] {
					return false
				}
			}
			pi++
			ti++
		}
		return ti == len(target)
	}
	return match(0, 0)
}
