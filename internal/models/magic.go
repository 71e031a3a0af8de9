package models

// Magic holds the file signatures read from archive, module, and texture
// headers. DDS intentionally carries a trailing space.
type Magic string

const (
	BTDX Magic = "BTDX"
	GNRL Magic = "GNRL"
	DX10 Magic = "DX10"
	TES4 Magic = "TES4"
	HEDR Magic = "HEDR"
	DDS  Magic = "DDS "
)

func (m Magic) String() string {
	return string(m)
}
