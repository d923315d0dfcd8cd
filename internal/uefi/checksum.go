package uefi

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// Checksum8 returns the low byte of the sum of all bytes.
func Checksum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Checksum16 returns the value which, written into a zeroed 16-bit
// checksum field, makes the sum of all little-endian words in data zero
// modulo 0x10000. Trailing odd bytes are ignored.
func Checksum16(data []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < len(data); i += 2 {
		sum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	return uint16(0x10000-uint32(sum)) & 0xFFFF
}

// CRC32 is the IEEE CRC32 of data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AlignUp rounds value up to the next multiple of alignment, which must
// be a power of two.
func AlignUp(value, alignment int) int {
	return (value + alignment - 1) &^ (alignment - 1)
}

// Hexdump renders data as offset-prefixed hex rows, 16 bytes per row.
func Hexdump(data []byte) string {
	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		parts := make([]string, 0, 16)
		for _, b := range data[i:end] {
			parts = append(parts, fmt.Sprintf("%02X", b))
		}
		fmt.Fprintf(&sb, "%04X: %s\n", i, strings.Join(parts, " "))
	}
	return sb.String()
}
