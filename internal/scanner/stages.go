package scanner

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/models"
	"github.com/collective-modding/cm-toolkit/internal/modmanager"
)

// xEdit 4.1.5g renamed the OBTS "Addon Index" field; Complex Sorter INIs
// written for older builds silently corrupt its output.
const outdatedSorterSummary = "INI uses an outdated field name. " +
	"xEdit 4.1.5g changed the name of 'Addon Index' to 'Parent Combination Index'. " +
	"Using outdated INIs with xEdit 4.1.5g+ results in broken output that may crash the game."

// scanComplexSorterINIs checks every INI under each registered Complex
// Sorter install for the outdated field name.
func (s *Scanner) scanComplexSorterINIs(ctx context.Context, messages chan<- Event) error {
	manager := s.game.Manager
	if manager == nil {
		return nil
	}
	toolPaths, registered := manager.Executables[modmanager.ToolComplexSorter]
	if !registered {
		return nil
	}

	messages <- StageChanged{Stage: "Checking Complex Sorter INIs..."}

	for _, toolPath := range toolPaths {
		toolDir := filepath.Dir(toolPath)
		err := walkTree(ctx, s.fs, toolDir, func(dir string, _ *[]string, files []string) error {
			for _, file := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !strings.EqualFold(filepath.Ext(file), ".ini") {
					continue
				}

				iniPath := filepath.Join(dir, file)
				text, err := fileutils.ReadTextFile(s.fs, iniPath)
				if err != nil {
					continue
				}
				if !usesOutdatedSorterField(text) {
					continue
				}

				relative, err := filepath.Rel(toolDir, iniPath)
				if err != nil {
					relative = file
				}
				messages <- problemFound{problem: models.NewProblemInfo(
					models.ComplexSorter,
					iniPath,
					relative,
					filepath.Base(toolDir),
					outdatedSorterSummary,
					models.ComplexSorterFix,
				)}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// usesOutdatedSorterField reports whether any non-comment line still
// reads the pre-4.1.5g field name, in either quote style.
func usesOutdatedSorterField(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, ";") {
			continue
		}
		if strings.Contains(line, `FindNode OBTS(FindNode "Addon Index"`) ||
			strings.Contains(line, "FindNode OBTS(FindNode 'Addon Index'") {
			return true
		}
	}
	return false
}

// Race subgraph additions (SADD records) are scanned as raw bytes across
// every enabled module; parsing each record type just to count one would
// cost far more than the fuzzy match risks.
var saddRecord = []byte{0x00, 'S', 'A', 'D', 'D'}

// More SADD records than this across the whole load order is the point
// where cell-transition stutter gets reported.
const raceSubgraphThreshold = 100

const raceSubgraphSummary = "Mods with these records modify animations for a race. " +
	"The game rebuilds its behavior graphs whenever such mods change cells with you, " +
	"and large record counts make those rebuilds long enough to stutter."

const raceSubgraphSolution = "IF you are experiencing stutter when moving between cells, " +
	"removing some of these mods could alleviate performance issues.\n" +
	"Merging them may also reduce stutter."

// scanRaceSubgraphs counts SADD records across the enabled modules and
// reports a single summary problem when the total crosses the threshold.
func (s *Scanner) scanRaceSubgraphs(ctx context.Context, messages chan<- Event) error {
	messages <- StageChanged{Stage: "Scanning Race Subgraph Records..."}

	modules := s.game.ModulesEnabled
	counts := make([]int, len(modules))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, modulePath := range modules {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			data, err := afero.ReadFile(s.fs, modulePath)
			if err != nil {
				return nil
			}
			counts[i] = bytes.Count(data, saddRecord)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	total := 0
	var fileList []models.FileListEntry
	for i, count := range counts {
		if count == 0 {
			continue
		}
		total += count
		fileList = append(fileList, models.FileListEntry{
			Label: strconv.Itoa(count),
			Path:  modules[i],
		})
	}

	if total <= raceSubgraphThreshold {
		return nil
	}

	problem := models.NewSimpleProblemInfo(
		fmt.Sprintf("%d SADD Records from %d modules", total, len(fileList)),
		"Race Subgraph Record Count",
		raceSubgraphSummary,
		raceSubgraphSolution,
	)
	problem.FileList = fileList
	messages <- problemFound{problem: problem}
	return nil
}
