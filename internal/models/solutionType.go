package models

// SolutionType names a suggested remedy. The value is the display text
// shown alongside a problem.
type SolutionType string

const (
	ArchiveOrDelete            SolutionType = "Archive or delete these files."
	ArchiveOrDeleteFile        SolutionType = "Archive or delete this file."
	ArchiveOrDeleteFolder      SolutionType = "Archive or delete this folder."
	ComplexSorterFix           SolutionType = "Update the Complex Sorter INI."
	ConvertDeleteOrIgnoreFile  SolutionType = "Convert, delete, or ignore this file."
	DeleteFile                 SolutionType = "Delete this file."
	DeleteOrIgnoreFile         SolutionType = "Delete or ignore this file."
	DeleteOrIgnoreFolder       SolutionType = "Delete or ignore this folder."
	DownloadMod                SolutionType = "Download the mod."
	RenameArchive              SolutionType = "Rename this archive."
	UnknownFormat              SolutionType = "Format unknown. Refer to the mod's documentation."
	VerifyFiles                SolutionType = "Verify your game files with Steam or GOG Galaxy."
)

func (s SolutionType) String() string {
	return string(s)
}
