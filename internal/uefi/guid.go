package uefi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// GUID is a 16-byte EFI GUID. The first three fields are stored
// little-endian on the wire, the last two big-endian.
type GUID [16]byte

// GUIDFromBytes builds a GUID from a 16-byte slice.
func GUIDFromBytes(b []byte) (GUID, error) {
	var g GUID
	if len(b) != 16 {
		return g, fmt.Errorf("invalid GUID length %d", len(b))
	}
	copy(g[:], b)
	return g, nil
}

// ParseGUID parses the canonical 8-4-4-4-12 text form.
func ParseGUID(s string) (GUID, error) {
	var g GUID
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return g, fmt.Errorf("invalid GUID format %q", s)
	}
	raw, err := hex.DecodeString(strings.Join(parts, ""))
	if err != nil || len(raw) != 16 {
		return g, fmt.Errorf("invalid GUID format %q", s)
	}
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(raw[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(raw[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(raw[6:8]))
	copy(g[8:], raw[8:])
	return g, nil
}

// MustParseGUID parses s and panics on malformed input. For package-level
// constants only.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String renders the canonical uppercase 8-4-4-4-12 form.
func (g GUID) String() string {
	d1 := binary.LittleEndian.Uint32(g[0:4])
	d2 := binary.LittleEndian.Uint16(g[4:6])
	d3 := binary.LittleEndian.Uint16(g[6:8])
	return fmt.Sprintf("%08X-%04X-%04X-%s-%s",
		d1, d2, d3,
		strings.ToUpper(hex.EncodeToString(g[8:10])),
		strings.ToUpper(hex.EncodeToString(g[10:16])))
}

// IsZero reports whether every byte is zero.
func (g GUID) IsZero() bool {
	for _, b := range g {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsPadding reports whether the GUID is the all-zero or all-ones pattern
// used to terminate a volume's file list.
func (g GUID) IsPadding() bool {
	allOnes := true
	for _, b := range g {
		if b != 0xFF {
			allOnes = false
			break
		}
	}
	return allOnes || g.IsZero()
}

// LZMACompressGUID identifies the single GUID-defined section format the
// parser knows how to decode.
var LZMACompressGUID = MustParseGUID("EE4E5898-3914-4259-9D6E-DC7BD79403CF")
