package models

// ArchiveVersion is the format revision stored at offset 4 of a BA2 header.
type ArchiveVersion uint32

const (
	ArchiveVersionOG  ArchiveVersion = 1
	ArchiveVersionNG7 ArchiveVersion = 7
	ArchiveVersionNG  ArchiveVersion = 8
)

// InstallType maps an archive format revision to the game generation
// that reads it.
func (v ArchiveVersion) InstallType() InstallType {
	switch v {
	case ArchiveVersionOG:
		return OG
	case ArchiveVersionNG7, ArchiveVersionNG:
		return NG
	default:
		return Unknown
	}
}
