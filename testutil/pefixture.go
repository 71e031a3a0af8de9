package testutil

import "encoding/binary"

// Minimal PE32+ image with one section: headers up front, raw section data
// at a fixed file offset. Enough for debug/pe to parse and for the
// toolkit's static export and version readers.
const (
	// PESectionRVA is where the single section maps in the image.
	PESectionRVA = 0x1000

	peRawOffset            = 0x200
	resourceDirectoryIndex = 2
	fixedFileInfoSignature = 0xFEEF04BD
)

// PEImage assembles a PE32+ executable holding payload in one section,
// with the given data directories (index -> RVA, size) pointing into it.
func PEImage(sectionName string, payload []byte, directories map[int][2]uint32) []byte {
	image := make([]byte, peRawOffset+len(payload))
	copy(image[0:2], "MZ")
	binary.LittleEndian.PutUint32(image[0x3c:], 0x40)
	copy(image[0x40:], "PE\x00\x00")

	fileHeader := image[0x44:]
	binary.LittleEndian.PutUint16(fileHeader[0:], 0x8664) // AMD64
	binary.LittleEndian.PutUint16(fileHeader[2:], 1)
	binary.LittleEndian.PutUint16(fileHeader[16:], 240)
	binary.LittleEndian.PutUint16(fileHeader[18:], 0x2022)

	optional := image[0x58:]
	binary.LittleEndian.PutUint16(optional[0:], 0x20b) // PE32+
	binary.LittleEndian.PutUint32(optional[108:], 16)  // NumberOfRvaAndSizes
	for index, directory := range directories {
		binary.LittleEndian.PutUint32(optional[112+8*index:], directory[0])
		binary.LittleEndian.PutUint32(optional[112+8*index+4:], directory[1])
	}

	section := image[0x148:]
	copy(section[0:8], sectionName)
	binary.LittleEndian.PutUint32(section[8:], uint32(len(payload)))  // VirtualSize
	binary.LittleEndian.PutUint32(section[12:], PESectionRVA)         // VirtualAddress
	binary.LittleEndian.PutUint32(section[16:], uint32(len(payload))) // SizeOfRawData
	binary.LittleEndian.PutUint32(section[20:], peRawOffset)          // PointerToRawData

	copy(image[peRawOffset:], payload)
	return image
}

// PEWithVersion builds an executable whose version resource reports the
// given four-part file version.
func PEWithVersion(major, minor, patch, build uint16) []byte {
	payload := make([]byte, 64)
	offset := 16
	binary.LittleEndian.PutUint32(payload[offset:], fixedFileInfoSignature)
	binary.LittleEndian.PutUint32(payload[offset+4:], 0x00010000)
	binary.LittleEndian.PutUint32(payload[offset+8:], uint32(major)<<16|uint32(minor))
	binary.LittleEndian.PutUint32(payload[offset+12:], uint32(patch)<<16|uint32(build))

	return PEImage(".rsrc", payload, map[int][2]uint32{
		resourceDirectoryIndex: {PESectionRVA, uint32(len(payload))},
	})
}
