package security

import (
	"encoding/binary"
	"testing"
)

// putMicrocodeHeader writes a plausible family-6 update header.
func putMicrocodeHeader(data []byte, offset int, cpuid uint32) {
	binary.LittleEndian.PutUint32(data[offset:], 1) // header version
	binary.LittleEndian.PutUint32(data[offset+0x0C:], cpuid)
}

func TestExtractCPUID(t *testing.T) {
	data := make([]byte, 0x100)
	putMicrocodeHeader(data, 0, 0x000906EA)

	cpuid, ok := ExtractCPUID(data, 0)
	if !ok {
		t.Fatalf("valid header rejected")
	}
	if cpuid != 0x000906EA {
		t.Errorf("cpuid = 0x%08X, want 0x000906EA", cpuid)
	}
}

func TestExtractCPUIDRejectsWrongFamily(t *testing.T) {
	data := make([]byte, 0x100)
	putMicrocodeHeader(data, 0, 0x00000F41) // family 15

	if _, ok := ExtractCPUID(data, 0); ok {
		t.Errorf("non family-6 signature accepted")
	}
}

func TestExtractCPUIDRejectsBadVersion(t *testing.T) {
	data := make([]byte, 0x100)
	putMicrocodeHeader(data, 0, 0x000906EA)
	binary.LittleEndian.PutUint32(data[0:], 2)

	if _, ok := ExtractCPUID(data, 0); ok {
		t.Errorf("header version 2 accepted")
	}
}

func TestExtractCPUIDBounds(t *testing.T) {
	if _, ok := ExtractCPUID(make([]byte, 0x10), 0); ok {
		t.Errorf("truncated header accepted")
	}
	if _, ok := ExtractCPUID(make([]byte, 0x100), -4); ok {
		t.Errorf("negative offset accepted")
	}
}

func TestFindMicrocodeUpdates(t *testing.T) {
	data := make([]byte, 0x4000)
	putMicrocodeHeader(data, 0x800, 0x000906EA)
	putMicrocodeHeader(data, 0x1C00, 0x000A0671)
	putMicrocodeHeader(data, 0x1E10, 0x000906EB) // unaligned, must be skipped

	updates := FindMicrocodeUpdates(data)
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(updates))
	}
	if updates[0].Offset != 0x800 || updates[0].CPUID != 0x000906EA {
		t.Errorf("first update = %+v", updates[0])
	}
	if updates[1].Offset != 0x1C00 || updates[1].CPUID != 0x000A0671 {
		t.Errorf("second update = %+v", updates[1])
	}
}
