package models

// ProblemType names a category of detected issue. The value is the
// display text shown in scan results.
type ProblemType string

const (
	AnimTextDataFolder ProblemType = "AnimTextData Folder"
	ComplexSorter      ProblemType = "Complex Sorter Config"
	F4SEOverride       ProblemType = "F4SE Script Override"
	FileNotFound       ProblemType = "File Not Found"
	InvalidArchive     ProblemType = "Invalid Archive"
	InvalidArchiveName ProblemType = "Invalid Archive Name"
	InvalidModule      ProblemType = "Invalid Module"
	JunkFile           ProblemType = "Junk File"
	LoosePrevis        ProblemType = "Loose Previs"
	MisplacedDLL       ProblemType = "Misplaced DLL"
	UnexpectedFormat   ProblemType = "Unexpected Format"
	WrongVersion       ProblemType = "Wrong Version"
)

func (p ProblemType) String() string {
	return string(p)
}

func AllProblemTypes() []ProblemType {
	return []ProblemType{
		AnimTextDataFolder, ComplexSorter, F4SEOverride, FileNotFound,
		InvalidArchive, InvalidArchiveName, InvalidModule, JunkFile,
		LoosePrevis, MisplacedDLL, UnexpectedFormat, WrongVersion,
	}
}
