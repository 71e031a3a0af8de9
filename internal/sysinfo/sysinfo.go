package sysinfo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Specs describes the machine the toolkit runs on, as shown in the
// overview report.
type Specs struct {
	OS        string
	CPU       string
	GPU       string
	VRAMGB    int
	RAMGB     int
	UsingWine bool
}

var (
	hostInfo      = host.InfoWithContext
	cpuInfo       = cpu.InfoWithContext
	virtualMemory = mem.VirtualMemoryWithContext
)

// Marketing names for Windows build numbers. gopsutil reports the raw
// build, players recognise the H-names.
var windowsDisplayVersions = map[string]string{
	"18362": "1903",
	"18363": "1909",
	"19041": "2004",
	"19042": "20H2",
	"19043": "21H1",
	"19044": "21H2",
	"19045": "22H2",
	"22000": "21H2",
	"22621": "22H2",
	"22631": "23H2",
	"26100": "24H2",
}

var (
	patternCPUNoise   = regexp.MustCompile(`(?:\d+(?:th|rd|nd) Gen| ?Processor| ?CPU|\d*[- ]Core|\(TM\)|\(R\))`)
	patternWhitespace = regexp.MustCompile(`\s+`)
	patternDigits     = regexp.MustCompile(`\d+`)
)

// Collect gathers host specs. Lookups that fail leave their field at an
// "Unknown" placeholder rather than failing the whole report.
func Collect(ctx context.Context) Specs {
	specs := Specs{
		UsingWine: wineHosted(),
	}
	specs.OS = collectOS(ctx, specs.UsingWine)
	specs.CPU = collectCPU(ctx)
	specs.GPU, specs.VRAMGB = videoAdapter()
	specs.RAMGB = collectRAM(ctx)
	return specs
}

func collectOS(ctx context.Context, usingWine bool) string {
	if usingWine {
		return "Linux (WINE)"
	}
	info, err := hostInfo(ctx)
	if err != nil {
		return "Unknown OS"
	}
	name := strings.TrimSpace(info.Platform)
	if name == "" {
		name = info.OS
	}
	if display := windowsDisplayVersion(info.PlatformVersion, info.KernelVersion); display != "" {
		return fmt.Sprintf("%s %s", name, display)
	}
	if info.PlatformVersion != "" {
		return fmt.Sprintf("%s %s", name, info.PlatformVersion)
	}
	return name
}

// windowsDisplayVersion maps any build number found in the version
// strings onto its marketing name.
func windowsDisplayVersion(versions ...string) string {
	for _, version := range versions {
		for _, token := range patternDigits.FindAllString(version, -1) {
			if display, ok := windowsDisplayVersions[token]; ok {
				return display
			}
		}
	}
	return ""
}

func collectCPU(ctx context.Context) string {
	infos, err := cpuInfo(ctx)
	if err != nil || len(infos) == 0 {
		return "Unknown CPU"
	}
	model := cleanCPUModel(infos[0].ModelName)
	if model == "" {
		return "Unknown CPU"
	}
	return model
}

// cleanCPUModel strips the trademark and core-count noise vendors pack
// into the model string, leaving something like "Intel i7-12700K".
func cleanCPUModel(model string) string {
	if strings.Contains(model, "Intel") && !strings.HasPrefix(model, "Intel") {
		model = "Intel " + strings.ReplaceAll(model, "Intel", "")
	}
	model = patternCPUNoise.ReplaceAllString(model, "")
	model = patternWhitespace.ReplaceAllString(model, " ")
	if at := strings.LastIndex(model, "@"); at >= 0 {
		model = model[:at]
	}
	return strings.TrimSpace(model)
}

func collectRAM(ctx context.Context) int {
	vm, err := virtualMemory(ctx)
	if err != nil {
		return 0
	}
	return int((vm.Total + 1<<29) / (1 << 30))
}
