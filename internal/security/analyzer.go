// Package security inspects a firmware image for write protections that
// would make flashing a modified image dangerous: Boot Guard manifests,
// PFAT armoring, the ME region, and flash-descriptor master locks.
package security

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/octools/go-biospatch/internal/logger"
)

// Status is the outcome of an analysis pass. SafeToFlash is false when a
// hard-block protection (Boot Guard verified boot or PFAT) is detected;
// everything else only produces warnings.
type Status struct {
	BootGuardEnabled  bool
	BootGuardVerified bool
	BootGuardMeasured bool
	BootGuardPolicy   uint32
	HasPolicy         bool
	MERegionFound     bool
	MEVersion         string
	PFATPresent       bool
	FDLocked          bool
	ACMPresent        bool
	SafeToFlash       bool
	Warnings          []string
}

var (
	keymSignature = []byte("__KEYM__")
	btgpSignature = []byte("__BTGP__")
	acmSignature  = []byte("ACMR")
	pfatSignature = []byte("_PFAT_")

	// DXE-phase enforcement modules. Either one means the platform
	// verifies the BIOS region at boot.
	enforcementModules = [][]byte{
		[]byte("HashDxe"),
		[]byte("BootGuardDxe"),
	}

	meSignatures = [][]byte{
		[]byte("$MN2"),
		[]byte("$MAN"),
		[]byte("$FPT"),
	}
)

// Flash descriptor signature, little-endian 0x0FF0A55A.
var fdSignature = []byte{0x5A, 0xA5, 0xF0, 0x0F}

// Analyzer runs the protection checks over one image.
type Analyzer struct {
	data   []byte
	status Status
}

func NewAnalyzer(data []byte) *Analyzer {
	return &Analyzer{data: data, status: Status{SafeToFlash: true}}
}

// Analyze runs every check and returns the aggregate status.
func (a *Analyzer) Analyze() Status {
	logger.LogInfo("running security analysis", nil)

	a.checkBootGuard()
	a.checkMERegion()
	a.checkPFAT()
	a.checkFDLock()
	a.determineSafety()

	return a.status
}

func (a *Analyzer) checkBootGuard() {
	if pos := bytes.Index(a.data, keymSignature); pos != -1 {
		logger.LogInfo("Boot Guard key manifest found", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", pos),
		})
		a.status.BootGuardEnabled = true

		// Policy word sits at +0x10 in the manifest.
		if pos+0x20 < len(a.data) {
			policy := binary.LittleEndian.Uint32(a.data[pos+0x10 : pos+0x14])
			a.status.BootGuardPolicy = policy
			a.status.HasPolicy = true

			if policy&0x01 != 0 {
				a.status.BootGuardVerified = true
				a.warn("CRITICAL: Boot Guard verified boot is enabled; flashing a modified image will brick the system")
			}
			if policy&0x02 != 0 {
				a.status.BootGuardMeasured = true
				a.warn("WARNING: Boot Guard measured boot is enabled")
			}
		}
	}

	if bytes.Contains(a.data, btgpSignature) {
		logger.LogInfo("Boot Guard policy blob found", nil)
		a.status.BootGuardEnabled = true
	}

	if pos := bytes.Index(a.data, acmSignature); pos != -1 {
		logger.LogInfo("authenticated code module found", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", pos),
		})
		a.status.ACMPresent = true
	}

	for _, pattern := range enforcementModules {
		if bytes.Contains(a.data, pattern) {
			logger.LogWarn("Boot Guard enforcement module present", map[string]interface{}{
				"module": string(pattern),
			})
			a.warn("CRITICAL: Boot Guard DXE enforcement module found; do not flash a modified image")
		}
	}
}

func (a *Analyzer) checkMERegion() {
	for _, sig := range meSignatures {
		pos := bytes.Index(a.data, sig)
		if pos == -1 {
			continue
		}
		logger.LogInfo("ME region signature found", map[string]interface{}{
			"signature": string(sig),
			"offset":    fmt.Sprintf("0x%x", pos),
		})
		a.status.MERegionFound = true

		// Manifest v2 carries the engine version as four words at +0x18.
		if bytes.Equal(sig, meSignatures[0]) && pos+0x20 < len(a.data) {
			v := a.data[pos+0x18 : pos+0x20]
			a.status.MEVersion = fmt.Sprintf("%d.%d.%d.%d",
				binary.LittleEndian.Uint16(v[0:2]),
				binary.LittleEndian.Uint16(v[2:4]),
				binary.LittleEndian.Uint16(v[4:6]),
				binary.LittleEndian.Uint16(v[6:8]))
			logger.LogInfo("ME version parsed", map[string]interface{}{
				"version": a.status.MEVersion,
			})
		}
		break
	}
}

func (a *Analyzer) checkPFAT() {
	if pos := bytes.Index(a.data, pfatSignature); pos != -1 {
		logger.LogWarn("PFAT signature found", map[string]interface{}{
			"offset": fmt.Sprintf("0x%x", pos),
		})
		a.status.PFATPresent = true
		a.warn("CRITICAL: PFAT is present; flashing may fail or brick the system")
	}
}

// checkFDLock locates the flash descriptor and inspects the FLMSTR1
// master register at +0x80. Any masked-off region access bit means the
// descriptor is locked for the host master.
func (a *Analyzer) checkFDLock() {
	pos := bytes.Index(a.data, fdSignature)
	if pos == -1 {
		return
	}
	logger.LogInfo("flash descriptor found", map[string]interface{}{
		"offset": fmt.Sprintf("0x%x", pos),
	})

	if pos+0x100 >= len(a.data) {
		return
	}
	flmstr1 := binary.LittleEndian.Uint32(a.data[pos+0x80 : pos+0x84])
	if flmstr1&0x0FFF != 0x0FFF {
		logger.LogWarn("flash descriptor appears locked", map[string]interface{}{
			"flmstr1": fmt.Sprintf("0x%08x", flmstr1),
		})
		a.status.FDLocked = true
		a.warn("WARNING: flash descriptor may be locked; an external programmer may be required")
	}
}

func (a *Analyzer) determineSafety() {
	if a.status.BootGuardVerified {
		a.status.SafeToFlash = false
		logger.LogError("unsafe to flash: Boot Guard verified boot is enabled", nil, nil)
	}
	if a.status.PFATPresent {
		a.status.SafeToFlash = false
		logger.LogError("unsafe to flash: PFAT is present", nil, nil)
	}

	if a.status.BootGuardMeasured {
		logger.LogWarn("Boot Guard measured boot enabled; TPM measurements will change", nil)
	}
	if a.status.FDLocked {
		logger.LogWarn("flash descriptor locked; external programmer may be needed", nil)
	}

	if a.status.SafeToFlash {
		logger.LogInfo("no critical security blocks detected", nil)
	} else {
		logger.LogError("critical security blocks detected, do not flash", nil, nil)
	}
}

func (a *Analyzer) warn(msg string) {
	a.status.Warnings = append(a.status.Warnings, msg)
}
