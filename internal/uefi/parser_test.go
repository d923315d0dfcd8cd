package uefi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildTestImage assembles a minimal but structurally valid image: one
// volume at offset 0 with driver files, free space at the volume tail,
// and a Setup store outside the volume.
func buildTestImage(t *testing.T) []byte {
	t.Helper()
	img := make([]byte, 0x2000)

	copy(img[0:4], FVHSignature)
	for i := 0; i < 16; i++ {
		img[FVGuidOffset+i] = byte(i + 1)
	}
	binary.LittleEndian.PutUint64(img[FVLengthOffset:], 0x1000)

	// Six driver files from the walk start, 0x30 bytes each.
	offset := FileWalkStart
	for n := 0; n < 6; n++ {
		for i := 0; i < 16; i++ {
			img[offset+i] = byte(n + 1)
		}
		img[offset+FileTypeOffset] = FileTypeDriver
		img[offset+FileSizeOffset] = 0x30
		offset += 0x30
	}
	// Zero GUID after the last file terminates the walk.

	// Free space at the volume tail.
	for i := 0xF00; i < 0x1000; i++ {
		img[i] = 0xFF
	}

	copy(img[0x1100:], SetupSignature)
	return img
}

func TestParseIndexesVolumesAndFiles(t *testing.T) {
	img, err := Parse(buildTestImage(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(img.Volumes) != 1 {
		t.Fatalf("volumes = %d, want 1", len(img.Volumes))
	}
	vol := img.Volumes[0]
	if vol.Offset != 0 || vol.Size != 0x1000 {
		t.Errorf("volume at 0x%x size 0x%x, want 0x0 size 0x1000", vol.Offset, vol.Size)
	}
	if len(vol.Files) != 6 {
		t.Fatalf("files = %d, want 6", len(vol.Files))
	}
	for _, f := range vol.Files {
		if f.Type != FileTypeDriver {
			t.Errorf("file type 0x%02x, want driver", f.Type)
		}
		if f.Size != 0x30 {
			t.Errorf("file size 0x%x, want 0x30", f.Size)
		}
	}
}

func TestParseSkipsSignatureInsideVolume(t *testing.T) {
	raw := buildTestImage(t)
	copy(raw[0x500:], FVHSignature) // decoy inside the accepted volume

	img, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(img.Volumes) != 1 {
		t.Errorf("volumes = %d, want 1 (nested signature re-detected)", len(img.Volumes))
	}
}

func TestParseNoVolumes(t *testing.T) {
	_, err := Parse(make([]byte, 0x200))
	if !errors.Is(err, ErrNoVolumes) {
		t.Fatalf("err = %v, want ErrNoVolumes", err)
	}
}

func TestParseRejectsOversizedVolume(t *testing.T) {
	img := make([]byte, 0x200)
	copy(img[0:4], FVHSignature)
	binary.LittleEndian.PutUint64(img[FVLengthOffset:], 0x10000)

	_, err := Parse(img)
	if !errors.Is(err, ErrNoVolumes) {
		t.Fatalf("err = %v, want ErrNoVolumes for oversized declared length", err)
	}
}

func TestFindSetup(t *testing.T) {
	img, err := Parse(buildTestImage(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if img.SetupOffset != 0x1100 {
		t.Fatalf("SetupOffset = 0x%x, want 0x1100", img.SetupOffset)
	}
	if len(img.SetupData) != SetupWindowSize {
		t.Errorf("SetupData length = 0x%x, want 0x%x", len(img.SetupData), SetupWindowSize)
	}
	if !bytes.HasPrefix(img.SetupData, SetupSignature) {
		t.Errorf("SetupData does not start at the signature")
	}
}

func TestSetupMissing(t *testing.T) {
	raw := buildTestImage(t)
	copy(raw[0x1100:0x1100+len(SetupSignature)], make([]byte, len(SetupSignature)))

	img, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if img.SetupOffset != -1 {
		t.Errorf("SetupOffset = 0x%x, want -1", img.SetupOffset)
	}
}

func TestFindDXEVolume(t *testing.T) {
	img, err := Parse(buildTestImage(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dxe := img.FindDXEVolume()
	if dxe == nil {
		t.Fatalf("FindDXEVolume returned nil, want the driver volume")
	}
	if dxe.Offset != 0 {
		t.Errorf("DXE volume offset = 0x%x, want 0x0", dxe.Offset)
	}
}

func TestFindFreeSpace(t *testing.T) {
	img, err := Parse(buildTestImage(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	vol := img.Volumes[0]

	got := img.FindFreeSpace(vol, 0x80)
	if got < 0xF00 || got+0x80 > 0x1000 {
		t.Errorf("free space at 0x%x, want inside [0xF00, 0x1000)", got)
	}

	if got := img.FindFreeSpace(vol, 0x800); got != -1 {
		t.Errorf("free space for oversized request = 0x%x, want -1", got)
	}
}
