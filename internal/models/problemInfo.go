package models

// UnmanagedMod is the mod name reported for files that no mod manager
// staging folder claims.
const UnmanagedMod = "<Unmanaged>"

// FileListEntry is one row of a problem's supporting file list.
// Label carries a count, size, or name depending on the problem.
type FileListEntry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

type ProblemInfo struct {
	Type          ProblemType     `json:"type"`
	Path          string          `json:"path"`
	RelativePath  string          `json:"relativePath"`
	Mod           string          `json:"mod"`
	Summary       string          `json:"summary"`
	Solution      SolutionType    `json:"solution,omitempty"`
	FileList      []FileListEntry `json:"fileList,omitempty"`
	ExtraData     []string        `json:"extraData,omitempty"`
	AutofixResult *AutofixResult  `json:"autofixResult,omitempty"`
}

// NewProblemInfo builds a problem report for a scanned file. An empty mod
// name is reported as unmanaged, except for missing files where no owner
// can be known.
func NewProblemInfo(
	problem ProblemType,
	path string,
	relativePath string,
	mod string,
	summary string,
	solution SolutionType,
) *ProblemInfo {
	if mod == "" && problem != FileNotFound {
		mod = UnmanagedMod
	}

	return &ProblemInfo{
		Type:         problem,
		Path:         path,
		RelativePath: relativePath,
		Mod:          mod,
		Summary:      summary,
		Solution:     solution,
	}
}

// NewSimpleProblemInfo builds a problem report with freeform problem and
// solution text, for findings that fall outside the known categories.
func NewSimpleProblemInfo(path string, problem string, summary string, solution string) *ProblemInfo {
	return &ProblemInfo{
		Type:         ProblemType(problem),
		Path:         path,
		RelativePath: path,
		Summary:      summary,
		Solution:     SolutionType(solution),
	}
}
