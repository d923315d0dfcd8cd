// Package nvram reads and writes EFI variables through efivarfs. Only
// Linux is supported; other platforms get ErrUnsupported.
package nvram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/octools/go-biospatch/internal/logger"
)

// SetupGUID is the vendor GUID of the Setup variable on the supported
// Dell platforms.
const SetupGUID = "EC87D643-EBA4-4BB5-A1E5-3F3E36B20DA9"

const efivarfsPath = "/sys/firmware/efi/efivars"

// Default attributes: non-volatile, boot-service and runtime access.
const defaultAttributes = 0x07

var (
	ErrUnsupported = errors.New("NVRAM access not supported on this platform")
	ErrNoAccess    = errors.New("efivarfs not available, need root and a mounted efivarfs")
	ErrNotFound    = errors.New("EFI variable not found")
)

// Store wraps efivarfs access.
type Store struct {
	root string
}

// New returns a Store, or an error when the platform cannot provide
// variable access.
func New() (*Store, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
	if _, err := os.Stat(efivarfsPath); err != nil {
		return nil, ErrNoAccess
	}
	return &Store{root: efivarfsPath}, nil
}

func (s *Store) varPath(name, guid string) string {
	return filepath.Join(s.root, fmt.Sprintf("%s-%s", name, guid))
}

// Read returns the variable payload with the 4-byte attribute prefix
// stripped.
func (s *Store) Read(name, guid string) ([]byte, error) {
	raw, err := os.ReadFile(s.varPath(name, guid))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("variable %s truncated (%d bytes)", name, len(raw))
	}
	return raw[4:], nil
}

// Write stores the variable with the given attributes prepended. The
// immutable flag efivarfs sets on existing variables must be cleared by
// the caller (chattr -i) before writing.
func (s *Store) Write(name, guid string, data []byte, attributes uint32) error {
	if attributes == 0 {
		attributes = defaultAttributes
	}
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], attributes)
	copy(buf[4:], data)

	if err := os.WriteFile(s.varPath(name, guid), buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	logger.LogInfo("EFI variable written", map[string]interface{}{
		"name": name, "bytes": len(data),
	})
	return nil
}

// BackupSetup copies the live Setup variable to a file.
func (s *Store) BackupSetup(path string) error {
	data, err := s.Read("Setup", SetupGUID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.LogInfo("Setup variable backed up", map[string]interface{}{
		"path": path, "bytes": len(data),
	})
	return nil
}

// RestoreSetup writes a previously saved Setup payload back.
func (s *Store) RestoreSetup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.Write("Setup", SetupGUID, data, defaultAttributes); err != nil {
		return err
	}
	logger.LogInfo("Setup variable restored", map[string]interface{}{
		"path": path,
	})
	return nil
}
