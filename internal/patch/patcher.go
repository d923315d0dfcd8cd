package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/octools/go-biospatch/internal/logger"
	"github.com/octools/go-biospatch/internal/uefi"
)

// Patcher edits a private copy of the image. Writing the same value a
// field already holds succeeds without recording a ledger entry, so a
// profile applied to an already-configured image produces an empty (or
// minimal) ledger.
type Patcher struct {
	data      []byte
	patches   []Patch
	setupBase int
	resolver  Resolver
}

// New copies data so the caller's buffer is never mutated.
func New(data []byte) *Patcher {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Patcher{data: buf, setupBase: -1}
}

// SetSetupBase records the absolute offset of the Setup variable data.
func (p *Patcher) SetSetupBase(offset int) {
	p.setupBase = offset
	logger.LogInfo("setup base set", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", offset),
	})
}

// SetResolver installs the name-to-offset resolver used by setting
// patches.
func (p *Patcher) SetResolver(r Resolver) {
	p.resolver = r
}

// PatchByte writes a single byte.
func (p *Patcher) PatchByte(offset int, value byte, description string) error {
	if offset < 0 || offset >= len(p.data) {
		return fmt.Errorf("%w: 0x%x", ErrOutOfBounds, offset)
	}

	old := p.data[offset]
	if old == value {
		logger.LogDebug("byte already at target value", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", offset), "value": fmt.Sprintf("0x%02X", value),
		})
		return nil
	}

	if description == "" {
		description = fmt.Sprintf("byte at 0x%x", offset)
	}
	p.record(Patch{
		Offset:      offset,
		OldData:     []byte{old},
		NewData:     []byte{value},
		Description: description,
	})
	p.data[offset] = value

	logger.LogInfo("patched byte", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", offset),
		"old":    fmt.Sprintf("0x%02X", old),
		"new":    fmt.Sprintf("0x%02X", value),
		"desc":   description,
	})
	return nil
}

// PatchWord writes a 16-bit little-endian word.
func (p *Patcher) PatchWord(offset int, value uint16, description string) error {
	if offset < 0 || offset+2 > len(p.data) {
		return fmt.Errorf("%w: 0x%x", ErrOutOfBounds, offset)
	}

	old := make([]byte, 2)
	copy(old, p.data[offset:offset+2])
	next := []byte{byte(value & 0xFF), byte(value >> 8)}

	if bytes.Equal(old, next) {
		logger.LogDebug("word already at target value", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", offset), "value": fmt.Sprintf("0x%04X", value),
		})
		return nil
	}

	if description == "" {
		description = fmt.Sprintf("word at 0x%x", offset)
	}
	p.record(Patch{
		Offset:      offset,
		OldData:     old,
		NewData:     next,
		Description: description,
	})
	copy(p.data[offset:offset+2], next)

	logger.LogInfo("patched word", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", offset),
		"old":    fmt.Sprintf("%X", old),
		"new":    fmt.Sprintf("%X", next),
		"desc":   description,
	})
	return nil
}

// PatchBytes writes an arbitrary byte run.
func (p *Patcher) PatchBytes(offset int, data []byte, description string) error {
	if offset < 0 || offset+len(data) > len(p.data) {
		return fmt.Errorf("%w: 0x%x (+%d)", ErrOutOfBounds, offset, len(data))
	}

	old := make([]byte, len(data))
	copy(old, p.data[offset:offset+len(data)])

	if bytes.Equal(old, data) {
		logger.LogDebug("bytes already match", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", offset),
		})
		return nil
	}

	if description == "" {
		description = fmt.Sprintf("%d bytes at 0x%x", len(data), offset)
	}
	next := make([]byte, len(data))
	copy(next, data)
	p.record(Patch{
		Offset:      offset,
		OldData:     old,
		NewData:     next,
		Description: description,
	})
	copy(p.data[offset:offset+len(data)], data)

	logger.LogInfo("patched bytes", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", offset),
		"length": len(data),
		"desc":   description,
	})
	return nil
}

// record logs any overlap with an earlier patch, then appends. Overlaps
// are legitimate (a later profile value may rewrite an earlier one) so
// they warn rather than fail.
func (p *Patcher) record(patch Patch) {
	for _, existing := range p.patches {
		if !existing.Applied {
			continue
		}
		if patch.Offset < existing.Offset+len(existing.NewData) &&
			patch.Offset+len(patch.NewData) > existing.Offset {
			logger.LogWarn("patch overlap", map[string]interface{}{
				"patch":    patch.Description,
				"overlaps": existing.Description,
			})
		}
	}
	patch.Applied = true
	p.patches = append(p.patches, patch)
}

// PatchSetupValue resolves a setting by name and writes value into the
// Setup variable. Only 1- and 2-byte settings are supported.
func (p *Patcher) PatchSetupValue(name string, value int) error {
	if p.setupBase < 0 {
		return ErrNoSetupBase
	}
	if p.resolver == nil {
		return fmt.Errorf("%w: no resolver installed", ErrOffsetNotFound)
	}

	offset, size, desc, err := p.resolver.Resolve(name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOffsetNotFound, name, err)
	}
	abs := p.setupBase + offset

	switch size {
	case 1:
		return p.PatchByte(abs, byte(value), fmt.Sprintf("%s: %s", name, desc))
	case 2:
		return p.PatchWord(abs, uint16(value), fmt.Sprintf("%s: %s", name, desc))
	default:
		return fmt.Errorf("%w: %s has size %d", ErrUnsupportedSize, name, size)
	}
}

// SetPowerLimit writes a power limit in watts to the <prefix>L and
// <prefix>H byte fields.
func (p *Patcher) SetPowerLimit(prefix string, watts int) error {
	lo, hi := EncodePowerLimit(watts)

	if err := p.PatchSetupValue(prefix+"L", int(lo)); err != nil {
		return err
	}
	if err := p.PatchSetupValue(prefix+"H", int(hi)); err != nil {
		return err
	}

	logger.LogInfo("power limit set", map[string]interface{}{
		"limit": prefix, "watts": watts,
	})
	return nil
}

// SetVoltageOffset writes a voltage offset in millivolts (negative
// undervolts) to the <prefix>OL and <prefix>OH byte fields.
func (p *Patcher) SetVoltageOffset(prefix string, mv int) error {
	lo, hi := EncodeVoltageOffset(mv)

	if err := p.PatchSetupValue(prefix+"OL", int(lo)); err != nil {
		return err
	}
	if err := p.PatchSetupValue(prefix+"OH", int(hi)); err != nil {
		return err
	}

	logger.LogInfo("voltage offset set", map[string]interface{}{
		"rail": prefix, "mv": mv,
	})
	return nil
}

// SetTau writes a turbo time window in seconds.
func (p *Patcher) SetTau(name string, seconds int) error {
	return p.PatchSetupValue(name, int(EncodeTau(seconds)))
}

// UnlockAll clears every known lock bit. Resolution failures on
// individual locks are collected rather than aborting the pass; a
// platform that lacks one of the locks still gets the rest cleared.
func (p *Patcher) UnlockAll() error {
	locks := []string{"CfgLk", "OcLk", "PlLk", "BiosLk", "PkgLk", "TdpLk"}
	var failed []string

	for _, lock := range locks {
		if err := p.PatchSetupValue(lock, 0); err != nil {
			logger.LogWarn("lock not cleared", map[string]interface{}{
				"lock": lock, "error": err.Error(),
			})
			failed = append(failed, lock)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrOffsetNotFound, strings.Join(failed, ", "))
	}
	return nil
}

// SetHAPBit flips bit 16 of the soft strap dword at pchOffset, which
// tells the Management Engine to halt after bring-up. The write is
// verified by reading the dword back; a mismatch is a hard failure.
func (p *Patcher) SetHAPBit(enable bool, pchOffset int) error {
	if pchOffset < 0 || pchOffset+4 > len(p.data) {
		return fmt.Errorf("%w: strap offset 0x%x", ErrOutOfBounds, pchOffset)
	}

	current := binary.LittleEndian.Uint32(p.data[pchOffset : pchOffset+4])
	next := current
	if enable {
		next |= 1 << 16
	} else {
		next &^= 1 << 16
	}

	if current == next {
		logger.LogInfo("HAP bit already at target state", map[string]interface{}{
			"enabled": enable,
		})
		return nil
	}

	desc := "disable HAP bit"
	if enable {
		desc = "enable HAP bit (ME disable)"
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, next)
	if err := p.PatchBytes(pchOffset, buf, desc); err != nil {
		return err
	}

	verify := binary.LittleEndian.Uint32(p.data[pchOffset : pchOffset+4])
	if verify != next {
		return fmt.Errorf("%w: HAP bit at 0x%x", ErrVerifyMismatch, pchOffset)
	}

	logger.LogInfo("HAP bit updated and verified", map[string]interface{}{
		"enabled": enable,
	})
	return nil
}

// InjectMicrocode validates an update blob and writes it at
// injectOffset. The header version must be 1, the processor signature
// must match cpuid, and the declared total size must equal the blob
// length. A nonzero dword sum only warns; some vendors ship blobs that
// do not balance.
func (p *Patcher) InjectMicrocode(ucode []byte, cpuid uint32, injectOffset int) error {
	if len(ucode) < 0x30 {
		return fmt.Errorf("%w: blob too small (%d bytes)", ErrBadMicrocode, len(ucode))
	}

	hdrVer := binary.LittleEndian.Uint32(ucode[0:4])
	updateRev := binary.LittleEndian.Uint32(ucode[4:8])
	date := binary.LittleEndian.Uint32(ucode[8:12])
	procSig := binary.LittleEndian.Uint32(ucode[12:16])
	totalSize := binary.LittleEndian.Uint32(ucode[32:36])

	if hdrVer != 1 {
		return fmt.Errorf("%w: header version %d", ErrBadMicrocode, hdrVer)
	}
	if procSig != cpuid {
		return fmt.Errorf("%w: CPUID mismatch, expected 0x%08X got 0x%08X",
			ErrBadMicrocode, cpuid, procSig)
	}
	if int(totalSize) != len(ucode) {
		return fmt.Errorf("%w: declared size %d, actual %d",
			ErrBadMicrocode, totalSize, len(ucode))
	}

	var sum uint32
	for i := 0; i+4 <= len(ucode); i += 4 {
		sum += binary.LittleEndian.Uint32(ucode[i : i+4])
	}
	if sum != 0 {
		logger.LogWarn("microcode dword sum nonzero", map[string]interface{}{
			"sum": fmt.Sprintf("0x%08X", sum),
		})
	}

	logger.LogInfo("injecting microcode", map[string]interface{}{
		"cpuid":    fmt.Sprintf("0x%08X", procSig),
		"revision": updateRev,
		"date":     fmt.Sprintf("%08X", date),
	})
	return p.PatchBytes(injectOffset, ucode,
		fmt.Sprintf("microcode update (CPUID 0x%08X)", procSig))
}

// RecalcVolumeChecksum zeroes the header checksum field and writes the
// freshly computed value, restoring header validity after edits inside
// the volume.
func (p *Patcher) RecalcVolumeChecksum(fvOffset int) error {
	if fvOffset < 0 || fvOffset+uefi.FVHeaderSize > len(p.data) {
		return fmt.Errorf("%w: volume header at 0x%x", ErrOutOfBounds, fvOffset)
	}

	p.data[fvOffset+uefi.FVChecksumOffset] = 0
	p.data[fvOffset+uefi.FVChecksumOffset+1] = 0

	sum := uefi.Checksum16(p.data[fvOffset : fvOffset+uefi.FVHeaderSize])
	binary.LittleEndian.PutUint16(
		p.data[fvOffset+uefi.FVChecksumOffset:fvOffset+uefi.FVChecksumOffset+2], sum)

	logger.LogInfo("volume checksum recalculated", map[string]interface{}{
		"offset":   fmt.Sprintf("0x%x", fvOffset),
		"checksum": fmt.Sprintf("0x%04X", sum),
	})
	return nil
}

// Patches returns the ledger in application order.
func (p *Patcher) Patches() []Patch {
	return p.patches
}

// Data returns a copy of the patched image.
func (p *Patcher) Data() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Summary renders the ledger for display.
func (p *Patcher) Summary() string {
	var sb strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintf(&sb, "\n%s\nPATCH SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&sb, "Total patches: %d\n\n", len(p.patches))

	for i, patch := range p.patches {
		mark := "✗"
		if patch.Applied {
			mark = "✓"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, mark, patch.Description)
		fmt.Fprintf(&sb, "   Offset: 0x%08X\n", patch.Offset)
		fmt.Fprintf(&sb, "   Before: %X\n", patch.OldData)
		fmt.Fprintf(&sb, "   After:  %X\n\n", patch.NewData)
	}

	sb.WriteString(rule + "\n")
	return sb.String()
}
