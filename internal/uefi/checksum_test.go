package uefi

import (
	"encoding/binary"
	"testing"
)

func TestChecksum16Closure(t *testing.T) {
	header := make([]byte, FVHeaderSize)
	for i := range header {
		header[i] = byte(i * 7)
	}
	// Zero the checksum field, compute, write back.
	header[FVChecksumOffset] = 0
	header[FVChecksumOffset+1] = 0
	sum := Checksum16(header)
	binary.LittleEndian.PutUint16(header[FVChecksumOffset:FVChecksumOffset+2], sum)

	var total uint16
	for i := 0; i+1 < len(header); i += 2 {
		total += binary.LittleEndian.Uint16(header[i : i+2])
	}
	if total != 0 {
		t.Errorf("word sum after checksum write = 0x%04X, want 0", total)
	}
}

func TestChecksum16Zero(t *testing.T) {
	if got := Checksum16(make([]byte, 16)); got != 0 {
		t.Errorf("Checksum16(zeros) = 0x%04X, want 0", got)
	}
}

func TestChecksum8(t *testing.T) {
	if got := Checksum8([]byte{0x01, 0x02, 0xFF}); got != 0x02 {
		t.Errorf("Checksum8 = 0x%02X, want 0x02", got)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ value, alignment, want int }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 4, 12},
		{0x17, 0x10, 0x20},
	}
	for _, c := range cases {
		if got := AlignUp(c.value, c.alignment); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.value, c.alignment, got, c.want)
		}
	}
}

func TestGUIDStringRoundTrip(t *testing.T) {
	const text = "EE4E5898-3914-4259-9D6E-DC7BD79403CF"
	g, err := ParseGUID(text)
	if err != nil {
		t.Fatalf("ParseGUID: %v", err)
	}
	if got := g.String(); got != text {
		t.Errorf("String() = %s, want %s", got, text)
	}
	if g != LZMACompressGUID {
		t.Errorf("parsed GUID does not match LZMACompressGUID")
	}
}

func TestGUIDPadding(t *testing.T) {
	var zero GUID
	if !zero.IsPadding() {
		t.Errorf("zero GUID should be padding")
	}

	var ones GUID
	for i := range ones {
		ones[i] = 0xFF
	}
	if !ones.IsPadding() {
		t.Errorf("all-ones GUID should be padding")
	}

	mixed := GUID{0x01}
	if mixed.IsPadding() {
		t.Errorf("mixed GUID should not be padding")
	}
}
