package uefi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/octools/go-biospatch/internal/logger"
)

// ErrNoVolumes is returned when no firmware volume can be found; this is
// fatal for the overall parse.
var ErrNoVolumes = errors.New("no firmware volumes found")

// Image is the structural index produced by Parse. SetupOffset is -1 when
// the Setup variable store was not located; callers must treat all
// Setup-dependent operations as unavailable in that case.
type Image struct {
	Data        []byte
	Volumes     []*FirmwareVolume
	SetupOffset int
	SetupData   []byte
}

// Parse walks the firmware image and indexes its volumes, files and the
// Setup variable store. Structural anomalies below volume level are
// logged and skipped; only the absence of any volume is an error.
func Parse(data []byte) (*Image, error) {
	img := &Image{Data: data, SetupOffset: -1}

	logger.LogDebug("parsing firmware image", map[string]interface{}{"size": len(data)})

	img.findVolumes()
	if len(img.Volumes) == 0 {
		return nil, ErrNoVolumes
	}

	for _, vol := range img.Volumes {
		img.parseVolumeFiles(vol)
	}

	img.findSetup()

	logger.LogInfo("firmware image parsed", map[string]interface{}{
		"volumes":      len(img.Volumes),
		"setup_offset": img.SetupOffset,
	})
	return img, nil
}

// findVolumes scans in 16-byte strides for the volume signature. Accepted
// volumes advance the cursor past their declared length, so a signature
// inside an accepted volume is never re-detected.
func (img *Image) findVolumes() {
	i := 0
	for i < len(img.Data)-FVHeaderSize {
		if bytes.Equal(img.Data[i:i+4], FVHSignature) {
			if vol, err := img.parseVolumeHeader(i); err == nil {
				img.Volumes = append(img.Volumes, vol)
				i += vol.Size
				continue
			} else {
				logger.LogDebug("rejected volume candidate", map[string]interface{}{
					"offset": fmt.Sprintf("0x%x", i), "reason": err.Error(),
				})
			}
		}
		i += 0x10
	}
}

func (img *Image) parseVolumeHeader(offset int) (*FirmwareVolume, error) {
	if offset+FVHeaderSize > len(img.Data) {
		return nil, errors.New("truncated volume header")
	}
	header := img.Data[offset : offset+FVHeaderSize]

	guid, _ := GUIDFromBytes(header[FVGuidOffset : FVGuidOffset+16])
	length := binary.LittleEndian.Uint64(header[FVLengthOffset : FVLengthOffset+8])

	if length == 0 || uint64(offset)+length > uint64(len(img.Data)) {
		return nil, fmt.Errorf("declared length 0x%x exceeds image bounds", length)
	}
	size := int(length)

	logger.LogDebug("found firmware volume", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", offset),
		"size":   fmt.Sprintf("0x%x", size),
		"guid":   guid.String(),
	})

	return &FirmwareVolume{
		Offset: offset,
		Size:   size,
		GUID:   guid,
		Data:   img.Data[offset : offset+size],
	}, nil
}

// parseVolumeFiles walks the FFS file list of one volume. Files are laid
// out sequentially from a fixed displacement, 8-byte aligned; an all-zero
// or all-ones GUID terminates the list (padding).
func (img *Image) parseVolumeFiles(vol *FirmwareVolume) {
	offset := FileWalkStart

	for offset < len(vol.Data)-FileHeaderSize {
		guid, _ := GUIDFromBytes(vol.Data[offset : offset+16])
		if guid.IsPadding() {
			break
		}

		file, err := parseFile(vol.Data, offset)
		if err != nil {
			logger.LogDebug("stopping file walk", map[string]interface{}{
				"volume": fmt.Sprintf("0x%x", vol.Offset),
				"offset": fmt.Sprintf("0x%x", offset),
				"reason": err.Error(),
			})
			break
		}

		file.Offset += vol.Offset // absolute within the image
		vol.Files = append(vol.Files, file)

		offset += file.Size
		offset = AlignUp(offset, 8)
	}
}

func parseFile(data []byte, offset int) (*FirmwareFile, error) {
	if offset+FileHeaderSize > len(data) {
		return nil, errors.New("truncated file header")
	}
	header := data[offset : offset+FileHeaderSize]

	guid, _ := GUIDFromBytes(header[0:16])
	size := read24(header[FileSizeOffset : FileSizeOffset+3])

	if size < FileHeaderSize || offset+size > len(data) {
		return nil, fmt.Errorf("invalid file size 0x%x", size)
	}

	return &FirmwareFile{
		Offset:         offset,
		Size:           size,
		GUID:           guid,
		Type:           header[FileTypeOffset],
		HeaderChecksum: header[FileChecksumOffset],
		Data:           data[offset : offset+size],
	}, nil
}

// findSetup locates the Setup variable store by its literal signature,
// scanning at 4-byte strides, and captures a fixed window after it.
// Not finding it is not fatal.
func (img *Image) findSetup() {
	for i := 0; i < len(img.Data)-len(SetupSignature); i += 4 {
		if bytes.Equal(img.Data[i:i+len(SetupSignature)], SetupSignature) {
			img.SetupOffset = i
			end := i + SetupWindowSize
			if end > len(img.Data) {
				end = len(img.Data)
			}
			img.SetupData = img.Data[i:end]
			logger.LogInfo("found Setup signature", map[string]interface{}{
				"offset": fmt.Sprintf("0x%x", i),
			})
			return
		}
	}
	logger.LogWarn("Setup data not found in firmware", nil)
}

// FindDXEVolume returns the volume that looks like the DXE driver volume:
// the first one holding more than five driver-type files.
func (img *Image) FindDXEVolume() *FirmwareVolume {
	for _, vol := range img.Volumes {
		drivers := 0
		for _, f := range vol.Files {
			if f.Type == FileTypeDriver {
				drivers++
			}
		}
		if drivers > 5 {
			return vol
		}
	}
	return nil
}

// FindFreeSpace scans a volume backwards for a run of minSize 0xFF
// padding bytes and returns its absolute offset, or -1.
func (img *Image) FindFreeSpace(vol *FirmwareVolume, minSize int) int {
	for i := len(vol.Data) - minSize; i > FileWalkStart; i -= 0x10 {
		free := true
		for _, b := range vol.Data[i : i+minSize] {
			if b != 0xFF {
				free = false
				break
			}
		}
		if free {
			return vol.Offset + i
		}
	}
	return -1
}

// read24 decodes a 3-byte little-endian size field.
func read24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}
