package vtscan

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFile(t *testing.T) {
	content := []byte("firmware image under test")
	path := filepath.Join(t.TempDir(), "bios.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	hashes, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if hashes.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", hashes.Size, len(content))
	}
	if want := fmt.Sprintf("%x", sha256.Sum256(content)); hashes.SHA256 != want {
		t.Errorf("SHA256 = %s, want %s", hashes.SHA256, want)
	}
	if len(hashes.MD5) != 32 || len(hashes.SHA1) != 40 {
		t.Errorf("digest lengths = %d/%d, want 32/40", len(hashes.MD5), len(hashes.SHA1))
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Errorf("missing file accepted")
	}
}

func TestInitializeRequiresKey(t *testing.T) {
	if err := Initialize(""); err == nil {
		t.Errorf("empty API key accepted")
	}
}

func TestLookupRequiresClient(t *testing.T) {
	if client != nil {
		t.Skip("client already initialized by another test")
	}
	if _, err := Lookup("deadbeef"); err == nil {
		t.Errorf("lookup without a client succeeded")
	}
}
