// Package vtscan checks firmware images against the VirusTotal
// database. Lookups are hash-only: a BIOS dump can contain serial
// numbers and owner-provisioned secrets, so the image itself is never
// uploaded.
package vtscan

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	vt "github.com/VirusTotal/vt-go"

	"github.com/octools/go-biospatch/internal/logger"
)

// Hashes holds the digests of one file.
type Hashes struct {
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
}

// Report summarizes a VirusTotal lookup. Found is false when the hash
// is not in the database, which is the norm for OEM firmware.
type Report struct {
	Found      bool
	SHA256     string
	Positives  int
	Total      int
	TypeDesc   string
	Permalink  string
	FirstBytes string
}

var (
	client     *vt.Client
	clientOnce sync.Once
)

// Initialize sets up the shared VirusTotal client.
func Initialize(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("VirusTotal API key is required")
	}
	clientOnce.Do(func() {
		client = vt.NewClient(apiKey)
		logger.LogInfo("VirusTotal client initialized", nil)
	})
	return nil
}

// HashFile computes the MD5, SHA1 and SHA256 of a file in one pass.
func HashFile(path string) (*Hashes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()

	n, err := io.Copy(io.MultiWriter(md5h, sha1h, sha256h), f)
	if err != nil {
		return nil, err
	}

	return &Hashes{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
		Size:   n,
	}, nil
}

// Lookup queries the database for a file hash.
func Lookup(hash string) (*Report, error) {
	if client == nil {
		return nil, fmt.Errorf("VirusTotal client not initialized")
	}

	obj, err := client.GetObject(vt.URL("files/%s", hash))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			logger.LogInfo("hash not in VirusTotal database", map[string]interface{}{
				"hash": hash,
			})
			return &Report{Found: false, SHA256: hash}, nil
		}
		return nil, fmt.Errorf("VirusTotal lookup: %w", err)
	}

	report := &Report{Found: true}
	report.SHA256, _ = obj.GetString("sha256")
	report.TypeDesc, _ = obj.GetString("type_description")

	if stats, err := obj.Get("last_analysis_stats"); err == nil {
		if m, ok := stats.(map[string]interface{}); ok {
			if malicious, ok := m["malicious"].(float64); ok {
				report.Positives = int(malicious)
			}
			for _, v := range m {
				if count, ok := v.(float64); ok {
					report.Total += int(count)
				}
			}
		}
	}
	report.Permalink = fmt.Sprintf("https://www.virustotal.com/gui/file/%s/detection", report.SHA256)

	logger.LogInfo("VirusTotal report retrieved", map[string]interface{}{
		"sha256":    report.SHA256,
		"positives": report.Positives,
		"total":     report.Total,
	})
	return report, nil
}

// ScanImage hashes path and looks up its SHA256.
func ScanImage(path string) (*Hashes, *Report, error) {
	hashes, err := HashFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	report, err := Lookup(hashes.SHA256)
	if err != nil {
		return hashes, nil, err
	}
	return hashes, report, nil
}
