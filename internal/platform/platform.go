// Package platform carries per-model knowledge: VRM power envelopes,
// supported processor signatures, detection signatures, and the static
// Setup offset table used when forms parsing yields nothing.
package platform

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/octools/go-biospatch/internal/logger"
)

// StaticOffset is one entry in a platform's fallback offset table.
type StaticOffset struct {
	Offset      int
	Size        int
	Description string
}

// Platform describes one supported machine.
type Platform struct {
	ID           string
	Name         string
	Codename     string
	Manufacturer string
	PCH          string

	SupportedCPUIDs []uint32

	// VRM envelope in watts. SustainedW bounds PL1, BurstW bounds PL2,
	// MaxSafeW is the point past which damage is plausible.
	SustainedW int
	BurstW     int
	MaxSafeW   int

	StaticOffsets map[string]StaticOffset
	BIOSVersions  []string
	Signatures    [][]byte

	SupportsRebar     bool
	SupportsAbove4G   bool
	SupportsMEDisable bool
}

// Resolve implements the patch engine's resolver contract against the
// static offset table.
func (p *Platform) Resolve(name string) (offset, size int, desc string, err error) {
	entry, ok := p.StaticOffsets[name]
	if !ok {
		return 0, 0, "", fmt.Errorf("no static offset for %q on %s", name, p.Name)
	}
	return entry.Offset, entry.Size, entry.Description, nil
}

// ValidatePowerLimits returns human-readable warnings for limits beyond
// the platform's VRM envelope. Zero values are treated as unset.
func (p *Platform) ValidatePowerLimits(pl1, pl2 int) []string {
	var warnings []string

	if pl1 > 0 && pl1 > p.SustainedW {
		warnings = append(warnings, fmt.Sprintf(
			"PL1 %dW exceeds %s VRM sustained spec (%dW)", pl1, p.Name, p.SustainedW))
	}
	if pl2 > 0 && pl2 > p.BurstW {
		warnings = append(warnings, fmt.Sprintf(
			"PL2 %dW exceeds %s VRM burst spec (%dW)", pl2, p.Name, p.BurstW))
	}
	if pl1 > 0 && pl1 > p.MaxSafeW {
		warnings = append(warnings, fmt.Sprintf(
			"PL1 %dW exceeds absolute safe maximum (%dW), VRM damage risk", pl1, p.MaxSafeW))
	}
	if pl2 > 0 && pl2 > p.MaxSafeW+20 {
		warnings = append(warnings, fmt.Sprintf(
			"PL2 %dW is dangerously high, VRM damage risk", pl2))
	}

	return warnings
}

// SupportsCPUID reports whether the platform lists the given processor
// signature.
func (p *Platform) SupportsCPUID(cpuid uint32) bool {
	for _, id := range p.SupportedCPUIDs {
		if id == cpuid {
			return true
		}
	}
	return false
}

var registry = map[string]*Platform{}

func register(p *Platform) {
	registry[p.ID] = p
	logger.LogDebug("platform registered", map[string]interface{}{
		"id": p.ID, "name": p.Name,
	})
}

// Get returns a platform by ID.
func Get(id string) (*Platform, bool) {
	p, ok := registry[id]
	return p, ok
}

// List returns every registered platform sorted by ID.
func List() []*Platform {
	out := make([]*Platform, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Detect matches the image against each platform's detection
// signatures. Generic vendor strings appear on every model, so the
// platform with the most matching signatures wins.
func Detect(data []byte) (*Platform, bool) {
	var best *Platform
	bestHits := 0

	for _, p := range List() {
		hits := 0
		for _, sig := range p.Signatures {
			if bytes.Contains(data, sig) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = p, hits
		}
	}

	if best == nil {
		logger.LogWarn("platform not detected from image", nil)
		return nil, false
	}
	logger.LogInfo("platform detected", map[string]interface{}{
		"name": best.Name, "signatures": bestHits,
	})
	return best, true
}
