// Package preset defines tuning profiles. Optional fields use pointers:
// nil means "leave the firmware's current value alone", which is
// different from an explicit zero.
package preset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/octools/go-biospatch/internal/logger"
)

// Profile is one complete tuning configuration.
type Profile struct {
	Name string `mapstructure:"name"`

	// 0 unlocked, 1 locked
	CfgLock int `mapstructure:"cfg_lock"`
	OcLock  int `mapstructure:"oc_lock"`

	// Power limits in watts, Tau in seconds
	PL1 *int `mapstructure:"pl1"`
	PL2 *int `mapstructure:"pl2"`
	PL3 *int `mapstructure:"pl3"`
	PL4 *int `mapstructure:"pl4"`
	Tau *int `mapstructure:"tau"`

	// Voltage offsets in mV, negative undervolts
	VcoreOffset *int `mapstructure:"vcore_offset"`
	RingOffset  *int `mapstructure:"ring_offset"`
	SaOffset    *int `mapstructure:"sa_offset"`
	IoOffset    *int `mapstructure:"io_offset"`

	// Turbo ratios per active core count
	Turbo1C *int `mapstructure:"turbo_1c"`
	Turbo2C *int `mapstructure:"turbo_2c"`
	Turbo3C *int `mapstructure:"turbo_3c"`
	Turbo4C *int `mapstructure:"turbo_4c"`
	Turbo5C *int `mapstructure:"turbo_5c"`
	Turbo6C *int `mapstructure:"turbo_6c"`

	// C-states
	CStates   *int `mapstructure:"c_states"`
	C1E       *int `mapstructure:"c1e"`
	PkgCState *int `mapstructure:"pkg_c_state"`

	// PCIe
	Above4G      *int `mapstructure:"above_4g"`
	ResizableBar *int `mapstructure:"resizable_bar"`

	// HAP bit
	MEDisable *int `mapstructure:"me_disable"`
}

func intp(v int) *int { return &v }

// Built-in profiles. Power and voltage values were tuned on the Dell G5
// 5090; other platforms inherit them with their own VRM warnings.
var presets = map[string]*Profile{
	"stock": {
		Name:    "stock",
		CfgLock: 1,
		OcLock:  1,
	},
	"balanced": {
		Name:        "balanced",
		PL1:         intp(65),
		PL2:         intp(90),
		Tau:         intp(28),
		VcoreOffset: intp(-25),
		RingOffset:  intp(-25),
		CStates:     intp(1),
		C1E:         intp(1),
		PkgCState:   intp(7),
	},
	"perf": {
		Name:        "perf",
		PL1:         intp(85),
		PL2:         intp(105),
		Tau:         intp(56),
		VcoreOffset: intp(-15),
		RingOffset:  intp(-15),
		CStates:     intp(1),
		C1E:         intp(1),
		PkgCState:   intp(3),
	},
	"gaming": {
		Name:         "gaming",
		PL1:          intp(80),
		PL2:          intp(100),
		PL3:          intp(110),
		Tau:          intp(40),
		VcoreOffset:  intp(-20),
		RingOffset:   intp(-20),
		CStates:      intp(1),
		C1E:          intp(1),
		PkgCState:    intp(3),
		Above4G:      intp(1),
		ResizableBar: intp(1),
	},
	// Sits right at the 5090 VRM spec; anything higher needs a custom
	// profile and accepts the VRM warnings.
	"max": {
		Name:         "max",
		PL1:          intp(95),
		PL2:          intp(115),
		PL3:          intp(125),
		PL4:          intp(135),
		Tau:          intp(128),
		VcoreOffset:  intp(-10),
		RingOffset:   intp(-10),
		CStates:      intp(0),
		C1E:          intp(0),
		PkgCState:    intp(0),
		Above4G:      intp(1),
		ResizableBar: intp(1),
	},
	"silent": {
		Name:        "silent",
		PL1:         intp(45),
		PL2:         intp(65),
		Tau:         intp(20),
		VcoreOffset: intp(-40),
		RingOffset:  intp(-40),
		CStates:     intp(1),
		C1E:         intp(1),
		PkgCState:   intp(10),
	},
	"uv": {
		Name:        "uv",
		VcoreOffset: intp(-75),
		RingOffset:  intp(-60),
		SaOffset:    intp(-50),
		IoOffset:    intp(-50),
	},
	"bare": {
		Name:      "bare",
		MEDisable: intp(1),
	},
}

// Get returns a built-in profile by name.
func Get(name string) (*Profile, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q, available: %s",
			name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names returns the built-in profile names sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a profile from a YAML or JSON file. Fields absent from the
// file stay nil.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(path, ".yaml")
	}

	logger.LogInfo("profile loaded", map[string]interface{}{
		"path": path, "name": p.Name,
	})
	return &p, nil
}
