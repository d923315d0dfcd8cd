// Package backup archives a firmware image before it is modified. Each
// backup is a compressed copy plus a .sha256 sidecar recording the
// digest of the original, so a restore can be verified.
package backup

import (
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	"github.com/octools/go-biospatch/internal/common/fsutil"
	"github.com/octools/go-biospatch/internal/logger"
)

// Result describes a completed backup.
type Result struct {
	ArchivePath string
	DigestPath  string
	SHA256      string
}

// Create archives src into destDir using the given format ("xz",
// "bzip2" or "gzip") and writes the sidecar digest file.
func Create(src, destDir, format string) (*Result, error) {
	if err := fsutil.CreateDirIfNotExists(destDir); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	ext, ok := map[string]string{"xz": ".xz", "bzip2": ".bz2", "gzip": ".gz"}[format]
	if !ok {
		return nil, fmt.Errorf("unsupported backup format %q", format)
	}

	stamp := time.Now().Format("20060102-150405")
	base := filepath.Base(src)
	archive := filepath.Join(destDir, fmt.Sprintf("%s.%s%s", base, stamp, ext))

	if err := compressFile(src, archive, format); err != nil {
		return nil, err
	}

	digest, err := hashFile(src)
	if err != nil {
		return nil, err
	}
	digestPath := archive + ".sha256"
	sidecar := fmt.Sprintf("%s  %s\n", digest, base)
	if err := os.WriteFile(digestPath, []byte(sidecar), 0o644); err != nil {
		return nil, fmt.Errorf("writing digest sidecar: %w", err)
	}

	logger.LogInfo("backup created", map[string]interface{}{
		"archive": archive,
		"sha256":  digest,
	})
	return &Result{ArchivePath: archive, DigestPath: digestPath, SHA256: digest}, nil
}

func compressFile(src, dst, format string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.WriteCloser
	switch format {
	case "xz":
		w, err = xz.NewWriter(out)
	case "bzip2":
		w, err = bzip2.NewWriter(out, nil)
	case "gzip":
		w = gzip.NewWriter(out)
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		return fmt.Errorf("failed to compress file: %w", err)
	}
	return w.Close()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Verify recomputes the digest of path and compares it with expected.
func Verify(path, expected string) error {
	got, err := hashFile(path)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("digest mismatch for %s: expected %s, got %s", path, expected, got)
	}
	return nil
}
