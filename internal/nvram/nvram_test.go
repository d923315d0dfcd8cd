package nvram

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// testStore points the efivarfs accessor at a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{root: t.TempDir()}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := testStore(t)
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	if err := s.Write("Setup", SetupGUID, payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read("Setup", SetupGUID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %x, want %x", got, payload)
	}

	// The on-disk form carries the 4-byte attribute prefix.
	raw, err := os.ReadFile(s.varPath("Setup", SetupGUID))
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != len(payload)+4 {
		t.Errorf("stored size = %d, want %d", len(raw), len(payload)+4)
	}
	if raw[0] != defaultAttributes {
		t.Errorf("attributes = 0x%02x, want 0x%02x", raw[0], defaultAttributes)
	}
}

func TestReadMissingVariable(t *testing.T) {
	s := testStore(t)
	if _, err := s.Read("Setup", SetupGUID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReadTruncatedVariable(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.varPath("Setup", SetupGUID), []byte{0x07}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Read("Setup", SetupGUID); err == nil {
		t.Errorf("truncated variable accepted")
	}
}

func TestBackupRestoreSetup(t *testing.T) {
	s := testStore(t)
	payload := []byte{0xAA, 0xBB, 0xCC}
	if err := s.Write("Setup", SetupGUID, payload, 0); err != nil {
		t.Fatal(err)
	}

	backupPath := filepath.Join(t.TempDir(), "setup.bin")
	if err := s.BackupSetup(backupPath); err != nil {
		t.Fatalf("BackupSetup: %v", err)
	}
	saved, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, payload) {
		t.Errorf("backup = %x, want %x", saved, payload)
	}

	// Wipe and restore.
	if err := os.Remove(s.varPath("Setup", SetupGUID)); err != nil {
		t.Fatal(err)
	}
	if err := s.RestoreSetup(backupPath); err != nil {
		t.Fatalf("RestoreSetup: %v", err)
	}
	got, err := s.Read("Setup", SetupGUID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("restored payload = %x, want %x", got, payload)
	}
}
