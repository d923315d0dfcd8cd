package ifr

import (
	"bytes"
	"strings"
	"unicode/utf16"
)

// stringScanWindow bounds how far past a candidate package marker the
// string scan may run; keeps a false-positive marker from swallowing the
// whole region.
const stringScanWindow = 512

// maxStringLen rejects decoded runs that are implausibly long for a
// setting prompt.
const maxStringLen = 100

// extractStrings is a best-effort approximation of string-package
// decoding: after each package-type marker it greedily decodes UTF-16LE
// runs terminated by a double zero, assigning sequential string IDs.
// It returns a partial (possibly empty) map and never fails. The full
// package format is deliberately not parsed; this function is the only
// thing a real parser would replace.
func extractStrings(data []byte) map[int]string {
	out := make(map[int]string)

	for pos := 0; pos < len(data)-16; pos++ {
		if !bytes.Equal(data[pos:pos+2], stringPackageMarker) {
			continue
		}

		strPos := pos + 4
		stringID := 1

		for strPos < len(data)-2 {
			if data[strPos] == 0 {
				break
			}

			endPos := strPos
			for endPos < len(data)-1 {
				if data[endPos] == 0 && data[endPos+1] == 0 {
					break
				}
				endPos += 2
			}

			if endPos > strPos && endPos < len(data) {
				if s := decodeUTF16LE(data[strPos:endPos]); s != "" && len(s) < maxStringLen {
					out[stringID] = s
					stringID++
				}
			}

			strPos = endPos + 2
			if strPos >= pos+stringScanWindow {
				break
			}
		}
	}

	return out
}

func decodeUTF16LE(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
	}
	var sb strings.Builder
	for _, r := range utf16.Decode(units) {
		if r == 0xFFFD {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimSpace(sb.String())
}
