package security

import (
	"encoding/binary"
	"testing"
)

func TestCleanImageSafe(t *testing.T) {
	status := NewAnalyzer(make([]byte, 0x1000)).Analyze()

	if !status.SafeToFlash {
		t.Errorf("clean image reported unsafe")
	}
	if status.BootGuardEnabled || status.PFATPresent || status.FDLocked || status.MERegionFound {
		t.Errorf("clean image reported protections: %+v", status)
	}
	if len(status.Warnings) != 0 {
		t.Errorf("clean image produced warnings: %v", status.Warnings)
	}
}

func TestBootGuardVerifiedBlocks(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x100:], keymSignature)
	binary.LittleEndian.PutUint32(img[0x110:], 0x01) // verified boot bit

	status := NewAnalyzer(img).Analyze()
	if !status.BootGuardEnabled || !status.BootGuardVerified {
		t.Fatalf("verified Boot Guard not detected: %+v", status)
	}
	if status.SafeToFlash {
		t.Errorf("verified Boot Guard did not block flashing")
	}
	if len(status.Warnings) == 0 {
		t.Errorf("no warning emitted for verified boot")
	}
}

func TestBootGuardMeasuredWarnsOnly(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x100:], keymSignature)
	binary.LittleEndian.PutUint32(img[0x110:], 0x02) // measured boot bit

	status := NewAnalyzer(img).Analyze()
	if !status.BootGuardMeasured {
		t.Fatalf("measured boot not detected")
	}
	if status.BootGuardVerified {
		t.Errorf("measured-only policy flagged as verified")
	}
	if !status.SafeToFlash {
		t.Errorf("measured boot alone should not block flashing")
	}
	if len(status.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(status.Warnings))
	}
}

func TestEnforcementModuleBlocksNothing(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x200:], []byte("HashDxe"))

	status := NewAnalyzer(img).Analyze()
	if len(status.Warnings) != 1 {
		t.Fatalf("warnings = %d, want 1 for enforcement module", len(status.Warnings))
	}
	// An enforcement module alone warns; only a verified policy blocks.
	if !status.SafeToFlash {
		t.Errorf("enforcement module without verified policy blocked flashing")
	}
}

func TestPFATBlocks(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x300:], pfatSignature)

	status := NewAnalyzer(img).Analyze()
	if !status.PFATPresent {
		t.Fatalf("PFAT not detected")
	}
	if status.SafeToFlash {
		t.Errorf("PFAT did not block flashing")
	}
}

func TestMEVersionParsed(t *testing.T) {
	img := make([]byte, 0x1000)
	pos := 0x400
	copy(img[pos:], []byte("$MN2"))
	binary.LittleEndian.PutUint16(img[pos+0x18:], 14)
	binary.LittleEndian.PutUint16(img[pos+0x1A:], 0)
	binary.LittleEndian.PutUint16(img[pos+0x1C:], 45)
	binary.LittleEndian.PutUint16(img[pos+0x1E:], 1389)

	status := NewAnalyzer(img).Analyze()
	if !status.MERegionFound {
		t.Fatalf("ME region not detected")
	}
	if status.MEVersion != "14.0.45.1389" {
		t.Errorf("MEVersion = %q, want 14.0.45.1389", status.MEVersion)
	}
	if !status.SafeToFlash {
		t.Errorf("ME region alone should not block flashing")
	}
}

func TestMEFPTWithoutVersion(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x400:], []byte("$FPT"))

	status := NewAnalyzer(img).Analyze()
	if !status.MERegionFound {
		t.Fatalf("ME region not detected via $FPT")
	}
	if status.MEVersion != "" {
		t.Errorf("MEVersion = %q, want empty for $FPT-only hit", status.MEVersion)
	}
}

func TestFDLock(t *testing.T) {
	locked := make([]byte, 0x1000)
	copy(locked[0x10:], fdSignature)
	binary.LittleEndian.PutUint32(locked[0x10+0x80:], 0x00000A0B) // region bits masked

	status := NewAnalyzer(locked).Analyze()
	if !status.FDLocked {
		t.Errorf("masked FLMSTR1 not reported as locked")
	}
	if !status.SafeToFlash {
		t.Errorf("FD lock alone should not block flashing")
	}

	open := make([]byte, 0x1000)
	copy(open[0x10:], fdSignature)
	binary.LittleEndian.PutUint32(open[0x10+0x80:], 0xFFFF0FFF)

	if status := NewAnalyzer(open).Analyze(); status.FDLocked {
		t.Errorf("fully open FLMSTR1 reported as locked")
	}
}

func TestACMDetection(t *testing.T) {
	img := make([]byte, 0x1000)
	copy(img[0x40:], acmSignature)

	status := NewAnalyzer(img).Analyze()
	if !status.ACMPresent {
		t.Errorf("ACM signature not detected")
	}
	if !status.SafeToFlash {
		t.Errorf("ACM alone should not block flashing")
	}
}
