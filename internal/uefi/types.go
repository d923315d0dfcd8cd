// Package uefi parses the structure of UEFI firmware images: firmware
// volumes, FFS files and sections, including compressed-section decoding.
// Parsing is a pure read-only pass over the image buffer; it builds an
// index and never mutates the input.
package uefi

// Firmware volume header layout. Offsets are relative to the position of
// the volume signature match.
const (
	FVHSignatureOffset = 0x28 // where _FVH sits inside a real header
	FVHeaderSize       = 0x38
	FVGuidOffset       = 0x10
	FVLengthOffset     = 0x20
	FVChecksumOffset   = 0x32

	// FFS file header layout.
	FileHeaderSize     = 0x18
	FileChecksumOffset = 0x10
	FileTypeOffset     = 0x12
	FileSizeOffset     = 0x14

	// Files start at this displacement from the volume base (header plus
	// the usual extended header).
	FileWalkStart = 0x48

	SectionHeaderSize = 4

	// SetupWindowSize is how much data is captured after the Setup
	// variable signature.
	SetupWindowSize = 0x800
)

// FVHSignature marks a firmware volume header.
var FVHSignature = []byte("_FVH")

// SetupSignature marks the Setup configuration-variable store.
var SetupSignature = []byte("SETUP\x00")

// FFS file types.
const (
	FileTypeRaw                byte = 0x01
	FileTypeFreeform           byte = 0x02
	FileTypeSecurityCore       byte = 0x03
	FileTypePEICore            byte = 0x04
	FileTypeDXECore            byte = 0x05
	FileTypePEIM               byte = 0x06
	FileTypeDriver             byte = 0x07
	FileTypeCombinedPEIMDriver byte = 0x08
	FileTypeApplication        byte = 0x09
	FileTypeFFSPad             byte = 0xF0
)

// Section types.
const (
	SectionCompression         byte = 0x01
	SectionGUIDDefined         byte = 0x02
	SectionPE32                byte = 0x10
	SectionPIC                 byte = 0x11
	SectionTE                  byte = 0x12
	SectionDXEDepex            byte = 0x13
	SectionVersion             byte = 0x14
	SectionUserInterface       byte = 0x15
	SectionFirmwareVolumeImage byte = 0x17
	SectionRaw                 byte = 0x19
)

// Compression section algorithm tags.
const (
	CompressNone       byte = 0x00
	CompressStandard   byte = 0x01
	CompressCustomized byte = 0x02
)

// FirmwareVolume is one discovered volume. Data aliases the image buffer.
type FirmwareVolume struct {
	Offset int
	Size   int
	GUID   GUID
	Data   []byte
	Files  []*FirmwareFile
}

// FirmwareFile is one FFS file inside a volume. Offset is absolute within
// the image; Data aliases the image buffer.
type FirmwareFile struct {
	Offset         int
	Size           int
	GUID           GUID
	Type           byte
	HeaderChecksum byte
	Data           []byte
}

// Section is one decoded section of a file's payload. For compression
// carriers Data holds the decompressed payload.
type Section struct {
	Type byte
	Data []byte
}
