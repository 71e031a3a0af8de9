package scanner

import "github.com/collective-modding/cm-toolkit/internal/models"

// Event is one message from a running scan. The channel returned by Run
// carries StageChanged, FolderProgress, and ProblemsFound events in scan
// order, then exactly one Done, then closes.
type Event interface {
	scanEvent()
}

// StageChanged reports the scan moving to a new stage.
type StageChanged struct {
	Stage string
}

// FolderProgress reports the walk entering a top-level Data folder.
type FolderProgress struct {
	Folder string
	Index  int
	Total  int
}

// ProblemsFound delivers a batch of at most batchSize findings.
type ProblemsFound struct {
	Problems []*models.ProblemInfo
}

// Stats summarizes a finished scan.
type Stats struct {
	FilesScanned  int
	ProblemsFound int
}

// Done is the terminal event. Err is nil on a completed scan and carries
// the context error when the scan was cancelled.
type Done struct {
	Stats Stats
	Err   error
}

func (StageChanged) scanEvent()   {}
func (FolderProgress) scanEvent() {}
func (ProblemsFound) scanEvent()  {}
func (Done) scanEvent()           {}

// problemFound flows from the stage goroutine to the collector, which
// owns batching. It never leaves the package.
type problemFound struct {
	problem *models.ProblemInfo
}

func (problemFound) scanEvent() {}
