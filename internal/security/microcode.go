package security

import (
	"encoding/binary"
	"fmt"

	"github.com/octools/go-biospatch/internal/logger"
)

// MicrocodeUpdate is one located update blob.
type MicrocodeUpdate struct {
	Offset int
	CPUID  uint32
}

const (
	microcodeHeaderSize = 0x30
	microcodeAlignment  = 0x400
)

// ExtractCPUID reads the processor signature from a microcode update
// header at offset. Returns false unless the header version is 1 and the
// signature decodes to an Intel Core family part.
//
// Header layout:
//
//	0x00 header version
//	0x04 update revision
//	0x08 date
//	0x0C processor signature
//	0x10 checksum
//	0x14 loader revision
//	0x18 processor flags
//	0x1C data size
//	0x20 total size
func ExtractCPUID(data []byte, offset int) (uint32, bool) {
	if offset < 0 || offset+microcodeHeaderSize > len(data) {
		return 0, false
	}
	if binary.LittleEndian.Uint32(data[offset:offset+4]) != 1 {
		return 0, false
	}

	cpuid := binary.LittleEndian.Uint32(data[offset+0x0C : offset+0x10])
	family := (cpuid >> 8) & 0x0F
	if family != 6 {
		return 0, false
	}
	return cpuid, true
}

// FindMicrocodeUpdates scans the image at 1 KiB alignment for update
// headers and returns every plausible hit.
func FindMicrocodeUpdates(data []byte) []MicrocodeUpdate {
	var updates []MicrocodeUpdate

	for offset := 0; offset < len(data)-0x800; offset += microcodeAlignment {
		cpuid, ok := ExtractCPUID(data, offset)
		if !ok {
			continue
		}
		logger.LogInfo("microcode update found", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", offset),
			"cpuid":  fmt.Sprintf("0x%08X", cpuid),
		})
		updates = append(updates, MicrocodeUpdate{Offset: offset, CPUID: cpuid})
	}

	return updates
}
