package patch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/octools/go-biospatch/internal/uefi"
)

// tableResolver is a fixed name-to-offset table for tests.
type tableResolver map[string]struct{ offset, size int }

func (r tableResolver) Resolve(name string) (int, int, string, error) {
	entry, ok := r[name]
	if !ok {
		return 0, 0, "", fmt.Errorf("no such setting %q", name)
	}
	return entry.offset, entry.size, name, nil
}

var testOffsets = tableResolver{
	"CfgLk":  {0x43, 1},
	"OcLk":   {0x44, 1},
	"PlLk":   {0x5E, 1},
	"BiosLk": {0x5F, 1},
	"PkgLk":  {0x60, 1},
	"TdpLk":  {0x6B, 1},
	"Pl1L":   {0x66, 1},
	"Pl1H":   {0x67, 1},
	"VcOL":   {0x70, 1},
	"VcOH":   {0x71, 1},
	"MFreq":  {0xB1, 2},
	"Odd":    {0xC0, 4},
}

func newTestPatcher(size int) *Patcher {
	p := New(make([]byte, size))
	p.SetSetupBase(0x100)
	p.SetResolver(testOffsets)
	return p
}

func TestPatchByteLedger(t *testing.T) {
	p := New(make([]byte, 0x100))

	if err := p.PatchByte(0x10, 0xAA, "test byte"); err != nil {
		t.Fatalf("PatchByte: %v", err)
	}

	patches := p.Patches()
	if len(patches) != 1 {
		t.Fatalf("ledger = %d entries, want 1", len(patches))
	}
	entry := patches[0]
	if entry.Offset != 0x10 || entry.OldData[0] != 0x00 || entry.NewData[0] != 0xAA {
		t.Errorf("ledger entry = %+v", entry)
	}
	if !entry.Applied {
		t.Errorf("entry not marked applied")
	}
	if p.Data()[0x10] != 0xAA {
		t.Errorf("byte not written")
	}
}

func TestPatchByteNoOp(t *testing.T) {
	p := New(make([]byte, 0x100))

	if err := p.PatchByte(0x10, 0x00, ""); err != nil {
		t.Fatalf("PatchByte: %v", err)
	}
	if len(p.Patches()) != 0 {
		t.Errorf("no-op write recorded a ledger entry")
	}
}

func TestPatchOutOfBounds(t *testing.T) {
	p := New(make([]byte, 0x100))

	if err := p.PatchByte(0x100, 0x01, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PatchByte past end: %v", err)
	}
	if err := p.PatchByte(-1, 0x01, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PatchByte negative: %v", err)
	}
	if err := p.PatchWord(0xFF, 0x1234, ""); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PatchWord straddling end: %v", err)
	}
	if err := p.PatchBytes(0xF0, make([]byte, 0x20), ""); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("PatchBytes past end: %v", err)
	}
}

func TestDataIsolation(t *testing.T) {
	src := make([]byte, 0x10)
	p := New(src)
	src[0] = 0xFF

	if p.Data()[0] != 0x00 {
		t.Errorf("patcher shares the caller's buffer")
	}

	out := p.Data()
	out[1] = 0xFF
	if p.Data()[1] != 0x00 {
		t.Errorf("Data() exposes the internal buffer")
	}
}

func TestPatchSetupValue(t *testing.T) {
	p := newTestPatcher(0x400)

	if err := p.PatchSetupValue("CfgLk", 1); err != nil {
		t.Fatalf("PatchSetupValue byte: %v", err)
	}
	if p.Data()[0x100+0x43] != 1 {
		t.Errorf("byte setting not written at setup base + offset")
	}

	if err := p.PatchSetupValue("MFreq", 0x1234); err != nil {
		t.Fatalf("PatchSetupValue word: %v", err)
	}
	data := p.Data()
	if binary.LittleEndian.Uint16(data[0x100+0xB1:]) != 0x1234 {
		t.Errorf("word setting not written little-endian")
	}

	if err := p.PatchSetupValue("Odd", 1); !errors.Is(err, ErrUnsupportedSize) {
		t.Errorf("4-byte setting: %v, want ErrUnsupportedSize", err)
	}
	if err := p.PatchSetupValue("Nope", 1); !errors.Is(err, ErrOffsetNotFound) {
		t.Errorf("unknown setting: %v, want ErrOffsetNotFound", err)
	}
}

func TestPatchSetupValueRequiresBase(t *testing.T) {
	p := New(make([]byte, 0x400))
	p.SetResolver(testOffsets)

	if err := p.PatchSetupValue("CfgLk", 0); !errors.Is(err, ErrNoSetupBase) {
		t.Fatalf("err = %v, want ErrNoSetupBase", err)
	}
}

func TestUnlockAll(t *testing.T) {
	p := newTestPatcher(0x400)

	// Set two locks; the rest are already clear.
	if err := p.PatchByte(0x100+0x43, 1, ""); err != nil {
		t.Fatal(err)
	}
	if err := p.PatchByte(0x100+0x44, 1, ""); err != nil {
		t.Fatal(err)
	}
	before := len(p.Patches())

	if err := p.UnlockAll(); err != nil {
		t.Fatalf("UnlockAll: %v", err)
	}

	data := p.Data()
	for _, off := range []int{0x43, 0x44, 0x5E, 0x5F, 0x60, 0x6B} {
		if data[0x100+off] != 0 {
			t.Errorf("lock at +0x%x not cleared", off)
		}
	}
	if got := len(p.Patches()) - before; got != 2 {
		t.Errorf("UnlockAll recorded %d entries, want 2 (only the set locks)", got)
	}
}

func TestUnlockAllPartialResolver(t *testing.T) {
	p := New(make([]byte, 0x400))
	p.SetSetupBase(0x100)
	p.SetResolver(tableResolver{"CfgLk": {0x43, 1}})

	err := p.UnlockAll()
	if !errors.Is(err, ErrOffsetNotFound) {
		t.Fatalf("err = %v, want ErrOffsetNotFound for missing locks", err)
	}
}

func TestSetPowerLimit(t *testing.T) {
	p := newTestPatcher(0x400)

	if err := p.SetPowerLimit("Pl1", 65); err != nil {
		t.Fatalf("SetPowerLimit: %v", err)
	}

	data := p.Data()
	lo, hi := data[0x100+0x66], data[0x100+0x67]
	if got := DecodePowerLimit(lo, hi); got != 65 {
		t.Errorf("stored limit decodes to %d W, want 65", got)
	}
}

func TestSetVoltageOffset(t *testing.T) {
	p := newTestPatcher(0x400)

	if err := p.SetVoltageOffset("Vc", -75); err != nil {
		t.Fatalf("SetVoltageOffset: %v", err)
	}

	data := p.Data()
	lo, hi := data[0x100+0x70], data[0x100+0x71]
	if got := DecodeVoltageOffset(lo, hi); got != -75 {
		t.Errorf("stored offset decodes to %d mV, want -75", got)
	}
}

func TestSetHAPBit(t *testing.T) {
	p := New(make([]byte, 0x2000))
	const strap = 0x1000

	if err := p.SetHAPBit(true, strap); err != nil {
		t.Fatalf("SetHAPBit: %v", err)
	}
	if v := binary.LittleEndian.Uint32(p.Data()[strap:]); v&(1<<16) == 0 {
		t.Errorf("HAP bit not set")
	}
	entries := len(p.Patches())

	// Setting again is a no-op.
	if err := p.SetHAPBit(true, strap); err != nil {
		t.Fatalf("SetHAPBit repeat: %v", err)
	}
	if len(p.Patches()) != entries {
		t.Errorf("idempotent set recorded a ledger entry")
	}

	if err := p.SetHAPBit(false, strap); err != nil {
		t.Fatalf("SetHAPBit clear: %v", err)
	}
	if v := binary.LittleEndian.Uint32(p.Data()[strap:]); v&(1<<16) != 0 {
		t.Errorf("HAP bit not cleared")
	}

	if err := p.SetHAPBit(true, 0x1FFE); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("strap past end: %v", err)
	}
}

func buildMicrocode(cpuid uint32, size int) []byte {
	ucode := make([]byte, size)
	binary.LittleEndian.PutUint32(ucode[0:], 1)
	binary.LittleEndian.PutUint32(ucode[12:], cpuid)
	binary.LittleEndian.PutUint32(ucode[32:], uint32(size))
	return ucode
}

func TestInjectMicrocode(t *testing.T) {
	p := New(make([]byte, 0x1000))
	ucode := buildMicrocode(0x000906EA, 0x80)

	if err := p.InjectMicrocode(ucode, 0x000906EA, 0x400); err != nil {
		t.Fatalf("InjectMicrocode: %v", err)
	}

	data := p.Data()
	if binary.LittleEndian.Uint32(data[0x400+12:]) != 0x000906EA {
		t.Errorf("microcode not written at inject offset")
	}
}

func TestInjectMicrocodeValidation(t *testing.T) {
	p := New(make([]byte, 0x1000))

	if err := p.InjectMicrocode(make([]byte, 0x10), 0x000906EA, 0); !errors.Is(err, ErrBadMicrocode) {
		t.Errorf("short blob: %v", err)
	}

	wrongCPU := buildMicrocode(0x000906EB, 0x80)
	if err := p.InjectMicrocode(wrongCPU, 0x000906EA, 0); !errors.Is(err, ErrBadMicrocode) {
		t.Errorf("CPUID mismatch: %v", err)
	}

	badSize := buildMicrocode(0x000906EA, 0x80)
	binary.LittleEndian.PutUint32(badSize[32:], 0x100)
	if err := p.InjectMicrocode(badSize, 0x000906EA, 0); !errors.Is(err, ErrBadMicrocode) {
		t.Errorf("size mismatch: %v", err)
	}

	badVer := buildMicrocode(0x000906EA, 0x80)
	binary.LittleEndian.PutUint32(badVer[0:], 7)
	if err := p.InjectMicrocode(badVer, 0x000906EA, 0); !errors.Is(err, ErrBadMicrocode) {
		t.Errorf("header version: %v", err)
	}
}

func TestSummaryMarksAppliedPatches(t *testing.T) {
	p := New(make([]byte, 0x100))
	if err := p.PatchByte(0x10, 0xAA, "test byte"); err != nil {
		t.Fatalf("PatchByte: %v", err)
	}

	summary := p.Summary()
	if !strings.Contains(summary, "[✓] test byte") {
		t.Errorf("summary missing applied mark:\n%s", summary)
	}

	p.patches[0].Applied = false
	if !strings.Contains(p.Summary(), "[✗] test byte") {
		t.Errorf("summary missing unapplied mark:\n%s", p.Summary())
	}
}

func TestRecalcVolumeChecksum(t *testing.T) {
	img := make([]byte, 0x200)
	for i := 0; i < uefi.FVHeaderSize; i++ {
		img[i] = byte(i*13 + 7)
	}
	p := New(img)

	if err := p.RecalcVolumeChecksum(0); err != nil {
		t.Fatalf("RecalcVolumeChecksum: %v", err)
	}

	header := p.Data()[:uefi.FVHeaderSize]
	var total uint16
	for i := 0; i+1 < len(header); i += 2 {
		total += binary.LittleEndian.Uint16(header[i : i+2])
	}
	if total != 0 {
		t.Errorf("header word sum = 0x%04X after recalc, want 0", total)
	}

	if err := p.RecalcVolumeChecksum(0x1F0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("header past end: %v", err)
	}
}
