// Package engine orchestrates the patching pipeline: load and parse an
// image, run the security preflight, apply a tuning profile, and save
// the result atomically.
package engine

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/octools/go-biospatch/internal/ifr"
	"github.com/octools/go-biospatch/internal/logger"
	"github.com/octools/go-biospatch/internal/patch"
	"github.com/octools/go-biospatch/internal/platform"
	"github.com/octools/go-biospatch/internal/preset"
	"github.com/octools/go-biospatch/internal/security"
	"github.com/octools/go-biospatch/internal/uefi"
)

// State tracks pipeline progress. Transitions only move forward.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StatePreflighted
	StateConfigured
	StateSaved
)

var (
	ErrNotLoaded      = errors.New("no image loaded")
	ErrNotPreflighted = errors.New("preflight has not been run")
	ErrSecurityBlock  = errors.New("critical security blocks detected")
	ErrVerifyFailed   = errors.New("output verification failed")
)

// Stats summarizes one engine run.
type Stats struct {
	InputSize      int
	OutputSize     int
	VolumesFound   int
	PatchesApplied int
	BootGuard      bool
	MEFound        bool
	SafeToFlash    bool
	Warnings       []string
}

// Engine drives the pipeline for one image.
type Engine struct {
	state    State
	stats    Stats
	image    *uefi.Image
	patcher  *patch.Patcher
	forms    *ifr.Parser
	platform *platform.Platform
	security security.Status

	// corruptVerify, when set, transforms the buffer between patching
	// and the save-time verification pass. Tests use it to simulate a
	// corrupted write.
	corruptVerify func([]byte) []byte
}

// New returns an empty engine. A platform can be pinned with
// SetPlatform; otherwise Load attempts signature detection.
func New() *Engine {
	return &Engine{stats: Stats{SafeToFlash: true}}
}

// SetPlatform pins the target platform by ID.
func (e *Engine) SetPlatform(id string) error {
	p, ok := platform.Get(id)
	if !ok {
		ids := make([]string, 0)
		for _, known := range platform.List() {
			ids = append(ids, known.ID)
		}
		return fmt.Errorf("unknown platform %q, available: %s", id, strings.Join(ids, ", "))
	}
	e.platform = p
	return nil
}

// Platform returns the pinned or detected platform, nil before Load.
func (e *Engine) Platform() *platform.Platform {
	return e.platform
}

// Stats returns the accumulated run statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// State returns the current pipeline state.
func (e *Engine) State() State {
	return e.state
}

// Load reads and parses a firmware image from disk.
func (e *Engine) Load(path string) error {
	logger.LogInfo("loading firmware image", map[string]interface{}{"path": path})

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	return e.LoadBytes(data)
}

// LoadBytes parses an in-memory image and prepares the patcher with a
// resolver chain: forms-discovered offsets first, then the platform's
// static table.
func (e *Engine) LoadBytes(data []byte) error {
	e.stats.InputSize = len(data)

	image, err := uefi.Parse(data)
	if err != nil {
		return fmt.Errorf("parsing firmware structure: %w", err)
	}
	e.image = image
	e.stats.VolumesFound = len(image.Volumes)
	logger.LogInfo("image parsed", map[string]interface{}{
		"bytes":   len(data),
		"volumes": len(image.Volumes),
	})

	if e.platform == nil {
		if detected, ok := platform.Detect(data); ok {
			e.platform = detected
		}
	}

	e.patcher = patch.New(data)

	var resolvers []patch.Resolver
	if image.SetupOffset >= 0 {
		e.patcher.SetSetupBase(image.SetupOffset)

		e.forms = ifr.NewParser()
		if discovered := e.forms.Parse(image.SetupData); len(discovered) > 0 {
			resolvers = append(resolvers, e.forms)
		}
	} else {
		logger.LogWarn("Setup data not found, Setup variable patching disabled", nil)
	}
	if e.platform != nil {
		resolvers = append(resolvers, e.platform)
	}
	e.patcher.SetResolver(chain(resolvers))

	e.state = StateLoaded
	return nil
}

// chain tries each resolver in order, returning the first hit.
type chain []patch.Resolver

func (c chain) Resolve(name string) (offset, size int, desc string, err error) {
	if len(c) == 0 {
		return 0, 0, "", errors.New("no resolvers available")
	}
	for _, r := range c {
		offset, size, desc, err = r.Resolve(name)
		if err == nil {
			return offset, size, desc, nil
		}
	}
	return 0, 0, "", err
}

// Preflight runs the security analysis. It fails with ErrSecurityBlock
// when the image carries a hard protection, unless force is set.
func (e *Engine) Preflight(force bool) error {
	if e.state < StateLoaded {
		return ErrNotLoaded
	}
	logger.LogInfo("running preflight checks", nil)

	e.security = security.NewAnalyzer(e.patcher.Data()).Analyze()
	e.stats.BootGuard = e.security.BootGuardEnabled
	e.stats.MEFound = e.security.MERegionFound
	e.stats.SafeToFlash = e.security.SafeToFlash
	e.stats.Warnings = append(e.stats.Warnings, e.security.Warnings...)

	for _, warning := range e.stats.Warnings {
		logger.LogWarn("preflight warning", map[string]interface{}{"warning": warning})
	}

	if !e.security.SafeToFlash {
		if !force {
			return fmt.Errorf("%w: use force to override", ErrSecurityBlock)
		}
		logger.LogWarn("force mode: bypassing safety checks", nil)
	}

	e.state = StatePreflighted
	logger.LogInfo("preflight checks passed", nil)
	return nil
}

// applyField downgrades a field the resolver cannot place on this
// platform to a warning so the rest of the profile still applies. Any
// other error aborts the run.
func (e *Engine) applyField(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, patch.ErrOffsetNotFound) || errors.Is(err, patch.ErrUnsupportedSize) {
		warning := fmt.Sprintf("%s not applied: %v", name, err)
		logger.LogWarn(warning, nil)
		e.stats.Warnings = append(e.stats.Warnings, warning)
		return nil
	}
	return err
}

// ApplyProfile writes every set field of the profile into the image.
// Nil fields leave the firmware's current values untouched. Fields the
// platform has no offset for are skipped with a warning; without a
// Setup store only the non-Setup patches (the HAP bit) run.
func (e *Engine) ApplyProfile(p *preset.Profile) error {
	if e.state < StatePreflighted {
		return ErrNotPreflighted
	}
	logger.LogInfo("applying profile", map[string]interface{}{"name": p.Name})

	hasSetup := e.image.SetupOffset >= 0
	if !hasSetup {
		warning := "Setup variable not located, Setup-dependent fields skipped"
		logger.LogWarn(warning, nil)
		e.stats.Warnings = append(e.stats.Warnings, warning)
	}

	if e.platform != nil {
		pl1, pl2 := 0, 0
		if p.PL1 != nil {
			pl1 = *p.PL1
		}
		if p.PL2 != nil {
			pl2 = *p.PL2
		}
		for _, warning := range e.platform.ValidatePowerLimits(pl1, pl2) {
			logger.LogWarn(warning, nil)
			e.stats.Warnings = append(e.stats.Warnings, warning)
		}
	}

	if hasSetup {
		if err := e.applySetupFields(p); err != nil {
			return err
		}
	}

	if p.MEDisable != nil && *p.MEDisable == 1 {
		logger.LogInfo("setting HAP bit to disable ME", nil)
		if err := e.patcher.SetHAPBit(true, 0x3454); err != nil {
			return err
		}
	}

	e.stats.PatchesApplied = len(e.patcher.Patches())
	logger.LogInfo("profile applied", map[string]interface{}{
		"patches": e.stats.PatchesApplied,
	})

	e.state = StateConfigured
	return nil
}

// applySetupFields writes the Setup-store-backed profile fields.
func (e *Engine) applySetupFields(p *preset.Profile) error {
	if p.CfgLock == 0 {
		if err := e.patcher.UnlockAll(); err != nil {
			logger.LogWarn("not all locks cleared", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if p.PL1 != nil {
		if err := e.applyField("PL1", e.patcher.SetPowerLimit("Pl1", *p.PL1)); err != nil {
			return err
		}
		if err := e.applyField("PL1 enable", e.patcher.PatchSetupValue("Pl1En", 1)); err != nil {
			return err
		}
	}
	if p.PL2 != nil {
		if err := e.applyField("PL2", e.patcher.SetPowerLimit("Pl2", *p.PL2)); err != nil {
			return err
		}
		if err := e.applyField("PL2 enable", e.patcher.PatchSetupValue("Pl2En", 1)); err != nil {
			return err
		}
	}
	if p.PL3 != nil {
		if err := e.applyField("PL3", e.patcher.SetPowerLimit("Pl3", *p.PL3)); err != nil {
			return err
		}
	}
	if p.PL4 != nil {
		if err := e.applyField("PL4", e.patcher.SetPowerLimit("Pl4", *p.PL4)); err != nil {
			return err
		}
	}
	if p.Tau != nil {
		if err := e.applyField("Tau", e.patcher.SetTau("Tau", *p.Tau)); err != nil {
			return err
		}
	}

	voltages := []struct {
		name   string
		prefix string
		value  *int
	}{
		{"Vcore offset", "Vc", p.VcoreOffset},
		{"Ring offset", "Rg", p.RingOffset},
		{"SA offset", "Sa", p.SaOffset},
		{"IO offset", "Io", p.IoOffset},
	}
	for _, v := range voltages {
		if v.value == nil {
			continue
		}
		if err := e.applyField(v.name, e.patcher.SetVoltageOffset(v.prefix, *v.value)); err != nil {
			return err
		}
	}

	ratios := []struct {
		name  string
		value *int
	}{
		{"R1", p.Turbo1C}, {"R2", p.Turbo2C}, {"R3", p.Turbo3C},
		{"R4", p.Turbo4C}, {"R5", p.Turbo5C}, {"R6", p.Turbo6C},
	}
	for _, r := range ratios {
		if r.value == nil {
			continue
		}
		if err := e.applyField(r.name, e.patcher.PatchSetupValue(r.name, *r.value)); err != nil {
			return err
		}
	}

	settings := []struct {
		name  string
		value *int
	}{
		{"CSt", p.CStates},
		{"C1E", p.C1E},
		{"PkgC", p.PkgCState},
		{"A4G", p.Above4G},
		{"RBar", p.ResizableBar},
	}
	for _, s := range settings {
		if s.value == nil {
			continue
		}
		if err := e.applyField(s.name, e.patcher.PatchSetupValue(s.name, *s.value)); err != nil {
			return err
		}
	}
	return nil
}

// Patcher exposes the underlying patcher for operations outside profile
// application, such as microcode injection.
func (e *Engine) Patcher() *patch.Patcher {
	if e.state < StateLoaded {
		return nil
	}
	return e.patcher
}

// Settings lists the settings discovered from the image's forms data.
func (e *Engine) Settings() []ifr.Setting {
	if e.forms == nil {
		return nil
	}
	return e.forms.Settings()
}

// Save writes the patched image. With atomic set, the data goes to a
// temporary file first and is re-parsed from disk; a verification
// failure removes the temporary file and leaves any existing output
// untouched.
func (e *Engine) Save(path string, atomic bool) error {
	if e.state < StateLoaded {
		return ErrNotLoaded
	}

	data := e.patcher.Data()
	if e.corruptVerify != nil {
		data = e.corruptVerify(data)
	}
	e.stats.OutputSize = len(data)

	if !atomic {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		e.state = StateSaved
		logger.LogInfo("image saved", map[string]interface{}{
			"path": path, "bytes": len(data),
		})
		return nil
	}

	tmpPath := path + ".tmp"
	logger.LogInfo("writing temporary file", map[string]interface{}{"path": tmpPath})
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temporary file: %w", err)
	}

	// Verify what actually landed on disk, not the in-memory buffer.
	written, err := os.ReadFile(tmpPath)
	if err == nil {
		_, err = uefi.Parse(written)
	}
	if err != nil {
		os.Remove(tmpPath)
		logger.LogError("output verification failed, temporary file removed", err, nil)
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing output: %w", err)
	}

	e.state = StateSaved
	logger.LogInfo("image saved", map[string]interface{}{
		"path": path, "bytes": len(data),
	})
	return nil
}

// Summary renders the run statistics plus the patch ledger.
func (e *Engine) Summary() string {
	var sb strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintf(&sb, "\n%s\nOPERATION SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&sb, "Input size:       %d bytes\n", e.stats.InputSize)
	fmt.Fprintf(&sb, "Output size:      %d bytes\n", e.stats.OutputSize)
	fmt.Fprintf(&sb, "Volumes found:    %d\n", e.stats.VolumesFound)
	fmt.Fprintf(&sb, "Patches applied:  %d\n", e.stats.PatchesApplied)
	fmt.Fprintf(&sb, "Boot Guard:       %v\n", e.stats.BootGuard)
	fmt.Fprintf(&sb, "ME region:        %v\n", e.stats.MEFound)
	if e.stats.SafeToFlash {
		sb.WriteString("Safe to flash:    yes\n")
	} else {
		sb.WriteString("Safe to flash:    NO - USE CAUTION\n")
	}

	if len(e.stats.Warnings) > 0 {
		fmt.Fprintf(&sb, "\nWarnings: %d\n", len(e.stats.Warnings))
		limit := len(e.stats.Warnings)
		if limit > 5 {
			limit = 5
		}
		for _, warning := range e.stats.Warnings[:limit] {
			fmt.Fprintf(&sb, "  - %s\n", warning)
		}
	}
	sb.WriteString(rule + "\n")

	if e.patcher != nil {
		sb.WriteString(e.patcher.Summary())
	}
	return sb.String()
}
