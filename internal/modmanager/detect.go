package modmanager

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/peinfo"
)

// Managers sit at most a couple of launcher shims above the game process.
const maxParentDepth = 4

var managerExecutables = map[string]Name{
	"modorganizer.exe": ModOrganizer,
	"vortex.exe":       Vortex,
}

// Process is the slice of process-tree inspection Detect needs.
type Process interface {
	Name() (string, error)
	Exe() (string, error)
	Parent() (Process, error)
}

type sysProcess struct {
	proc *process.Process
}

func (p sysProcess) Name() (string, error) { return p.proc.Name() }

func (p sysProcess) Exe() (string, error) { return p.proc.Exe() }

func (p sysProcess) Parent() (Process, error) {
	parent, err := p.proc.Parent()
	if err != nil {
		return nil, err
	}
	return sysProcess{proc: parent}, nil
}

// Detect walks up from this process's parent looking for a running mod
// manager. It returns nil when the toolkit was launched on its own or the
// process tree cannot be inspected.
func Detect(fs afero.Fs) *Manager {
	parent, err := process.NewProcess(int32(os.Getppid()))
	if err != nil {
		return nil
	}
	return DetectFrom(fs, sysProcess{proc: parent})
}

// DetectFrom runs manager detection from the given process-tree entry.
func DetectFrom(fs afero.Fs, start Process) *Manager {
	proc := start
	for depth := 0; depth < maxParentDepth; depth++ {
		if proc == nil {
			return nil
		}
		name, err := proc.Name()
		if err != nil {
			return nil
		}
		if managerName, ok := managerExecutables[strings.ToLower(name)]; ok {
			exePath, err := proc.Exe()
			if err != nil {
				return nil
			}
			return New(managerName, exePath, exeVersion(fs, exePath))
		}
		proc, err = proc.Parent()
		if err != nil {
			return nil
		}
	}
	return nil
}

// exeVersion reads the executable's version resource, shortened to the
// three parts mod managers display.
func exeVersion(fs afero.Fs, exePath string) string {
	version, err := peinfo.ReadVersion(fs, exePath)
	if err != nil || version.IsZero() {
		return ""
	}
	return version.Short()
}
