package patch

import "math"

// Power limits are stored in 1/8 W units as a little-endian word split
// across two adjacent byte fields.

// EncodePowerLimit converts watts to the stored word, clamped to the
// field width. Values up to 8191 W round-trip exactly.
func EncodePowerLimit(watts int) (lo, hi byte) {
	raw := watts * 8
	if raw < 0 {
		raw = 0
	}
	if raw > 0xFFFF {
		raw = 0xFFFF
	}
	return byte(raw & 0xFF), byte(raw >> 8)
}

// DecodePowerLimit converts the stored word back to watts.
func DecodePowerLimit(lo, hi byte) int {
	return (int(hi)<<8 | int(lo)) / 8
}

// Voltage offsets are signed 1/1.024 mV units in a little-endian int16.

// EncodeVoltageOffset converts millivolts (negative undervolts) to the
// stored word.
func EncodeVoltageOffset(mv int) (lo, hi byte) {
	raw := int(math.Round(float64(mv) * 1.024))
	if raw > math.MaxInt16 {
		raw = math.MaxInt16
	}
	if raw < math.MinInt16 {
		raw = math.MinInt16
	}
	u := uint16(int16(raw))
	return byte(u & 0xFF), byte(u >> 8)
}

// DecodeVoltageOffset converts the stored word back to millivolts,
// rounded to the nearest integer.
func DecodeVoltageOffset(lo, hi byte) int {
	raw := int16(uint16(lo) | uint16(hi)<<8)
	return int(math.Round(float64(raw) / 1.024))
}

// EncodeTau clamps a turbo time window in seconds to its single-byte
// field. The firmware field is actually a mantissa/exponent pair; plain
// seconds is close enough below 128 s, which covers every preset.
func EncodeTau(seconds int) byte {
	if seconds < 0 {
		return 0
	}
	if seconds > 0xFF {
		return 0xFF
	}
	return byte(seconds)
}
