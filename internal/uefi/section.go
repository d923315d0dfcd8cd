package uefi

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/octools/go-biospatch/internal/logger"
	"github.com/ulikunitz/xz/lzma"
)

// ErrSectionDecode marks a section whose payload could not be decoded
// (unsupported compression or GUID format). Such sections are dropped,
// never fatal to the parse.
var ErrSectionDecode = errors.New("section decode failed")

// ExtractSections walks the section stream of a file and returns each
// decoded section. Compression and GUID-defined carriers are replaced by
// their decompressed payload; undecodable sections are skipped.
func ExtractSections(file *FirmwareFile) []Section {
	var sections []Section
	offset := FileHeaderSize

	for offset < len(file.Data)-SectionHeaderSize {
		size := read24(file.Data[offset : offset+3])
		if size < SectionHeaderSize || offset+size > len(file.Data) {
			break
		}
		sectType := file.Data[offset+3]
		body := file.Data[offset+SectionHeaderSize : offset+size]

		switch sectType {
		case SectionCompression:
			if payload, err := decodeCompressionSection(body); err == nil {
				sections = append(sections, Section{Type: sectType, Data: payload})
			} else {
				logger.LogDebug("dropping compression section", map[string]interface{}{
					"file": file.GUID.String(), "reason": err.Error(),
				})
			}
		case SectionGUIDDefined:
			if payload, err := decodeGUIDSection(body); err == nil {
				sections = append(sections, Section{Type: sectType, Data: payload})
			} else {
				logger.LogDebug("dropping GUID-defined section", map[string]interface{}{
					"file": file.GUID.String(), "reason": err.Error(),
				})
			}
		default:
			sections = append(sections, Section{Type: sectType, Data: body})
		}

		offset += size
		offset = AlignUp(offset, 4)
	}

	return sections
}

// decodeCompressionSection decodes the length-prefixed Compression
// carrier: {uncompressed size:4}{algorithm:1}{payload}. Algorithm 0 is a
// passthrough; anything else is tried as LZMA, then zlib.
func decodeCompressionSection(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("%w: compression header too short", ErrSectionDecode)
	}
	algorithm := body[4]
	payload := body[5:]

	if algorithm == CompressNone {
		return payload, nil
	}

	if out, err := TryLZMADecompress(payload); err == nil {
		return out, nil
	}
	out, err := TryZlibDecompress(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: algorithm 0x%02x", ErrSectionDecode, algorithm)
	}
	return out, nil
}

// decodeGUIDSection decodes the GUID-defined carrier:
// {guid:16}{data offset:2}{...}. Only the LZMA compression GUID is
// recognized.
func decodeGUIDSection(body []byte) ([]byte, error) {
	if len(body) < 20 {
		return nil, fmt.Errorf("%w: GUID section too short", ErrSectionDecode)
	}
	guid, _ := GUIDFromBytes(body[0:16])
	dataOffset := int(binary.LittleEndian.Uint16(body[16:18]))

	if guid != LZMACompressGUID {
		return nil, fmt.Errorf("%w: unrecognized GUID %s", ErrSectionDecode, guid)
	}
	if dataOffset > len(body) {
		return nil, fmt.Errorf("%w: data offset beyond section", ErrSectionDecode)
	}
	return TryLZMADecompress(body[dataOffset:])
}

// TryLZMADecompress attempts an LZMA-alone decode of data.
func TryLZMADecompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return out, nil
}

// TryZlibDecompress attempts a zlib decode of data.
func TryZlibDecompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out, nil
}
