package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octools/go-biospatch/internal/backup"
	"github.com/octools/go-biospatch/internal/config"
	"github.com/octools/go-biospatch/internal/engine"
	"github.com/octools/go-biospatch/internal/logger"
	"github.com/octools/go-biospatch/internal/preset"
)

var patchFlags struct {
	in         string
	out        string
	presetName string
	profile    string
	platformID string
	force      bool
	noBackup   bool
	noAtomic   bool

	pl1, pl2, pl3, pl4 int
	tau                int
	vcore, ring        int
	sa, io             int
	above4G            bool
	rebar              bool
	meDisable          bool
	unlock             bool
}

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Apply a tuning profile to a firmware image",
	Long: `Apply a built-in preset or a profile file to a firmware image and
write the result. The input is backed up first, the security preflight
runs before any modification, and the output is verified before it
replaces anything.

Individual flags override the values from the preset or profile file.`,
	RunE: runPatch,
}

func init() {
	f := patchCmd.Flags()
	f.StringVar(&patchFlags.in, "in", "", "input firmware image (required)")
	f.StringVar(&patchFlags.out, "out", "", "output path (required)")
	f.StringVar(&patchFlags.presetName, "preset", "", "built-in preset name")
	f.StringVar(&patchFlags.profile, "profile", "", "profile file (YAML or JSON)")
	f.StringVar(&patchFlags.platformID, "platform", "", "pin the target platform instead of auto-detecting")
	f.BoolVar(&patchFlags.force, "force", false, "proceed despite critical security blocks")
	f.BoolVar(&patchFlags.noBackup, "no-backup", false, "skip the input backup")
	f.BoolVar(&patchFlags.noAtomic, "no-atomic", false, "write the output directly without verification")

	f.IntVar(&patchFlags.pl1, "pl1", 0, "PL1 sustained power limit in watts")
	f.IntVar(&patchFlags.pl2, "pl2", 0, "PL2 burst power limit in watts")
	f.IntVar(&patchFlags.pl3, "pl3", 0, "PL3 power limit in watts")
	f.IntVar(&patchFlags.pl4, "pl4", 0, "PL4 power limit in watts")
	f.IntVar(&patchFlags.tau, "tau", 0, "turbo time window in seconds")
	f.IntVar(&patchFlags.vcore, "vcore", 0, "Vcore offset in mV (negative undervolts)")
	f.IntVar(&patchFlags.ring, "ring", 0, "ring offset in mV")
	f.IntVar(&patchFlags.sa, "sa", 0, "system agent offset in mV")
	f.IntVar(&patchFlags.io, "io", 0, "IO offset in mV")
	f.BoolVar(&patchFlags.above4G, "above-4g", false, "enable Above 4G Decoding")
	f.BoolVar(&patchFlags.rebar, "rebar", false, "enable Resizable BAR")
	f.BoolVar(&patchFlags.meDisable, "me-disable", false, "set the HAP bit to disable the ME")
	f.BoolVar(&patchFlags.unlock, "unlock", false, "clear all known lock bits")

	patchCmd.MarkFlagRequired("in")
	patchCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(patchCmd)
}

func runPatch(cmd *cobra.Command, args []string) error {
	profile, err := buildProfile(cmd)
	if err != nil {
		return err
	}

	if !patchFlags.noBackup {
		result, err := backup.Create(patchFlags.in, config.Instance.Backup.Dir, config.Instance.Backup.Format)
		if err != nil {
			return fmt.Errorf("backing up input: %w", err)
		}
		fmt.Printf("Backup: %s\n", result.ArchivePath)
	}

	eng := engine.New()
	if patchFlags.platformID != "" {
		if err := eng.SetPlatform(patchFlags.platformID); err != nil {
			return err
		}
	}

	if err := eng.Load(patchFlags.in); err != nil {
		return err
	}
	if err := eng.Preflight(patchFlags.force); err != nil {
		return err
	}
	if err := eng.ApplyProfile(profile); err != nil {
		return err
	}
	if err := eng.Save(patchFlags.out, !patchFlags.noAtomic); err != nil {
		return err
	}

	fmt.Print(eng.Summary())
	return nil
}

// buildProfile assembles the effective profile: preset or profile file
// as the base, explicitly set flags on top.
func buildProfile(cmd *cobra.Command) (*preset.Profile, error) {
	if patchFlags.presetName != "" && patchFlags.profile != "" {
		return nil, fmt.Errorf("--preset and --profile are mutually exclusive")
	}

	var profile *preset.Profile
	var err error
	switch {
	case patchFlags.presetName != "":
		profile, err = preset.Get(patchFlags.presetName)
	case patchFlags.profile != "":
		profile, err = preset.Load(patchFlags.profile)
	default:
		profile = &preset.Profile{Name: "custom"}
	}
	if err != nil {
		return nil, err
	}

	// Copy so flag overrides never mutate a shared built-in preset.
	merged := *profile

	overrides := []struct {
		flag  string
		dst   **int
		value int
	}{
		{"pl1", &merged.PL1, patchFlags.pl1},
		{"pl2", &merged.PL2, patchFlags.pl2},
		{"pl3", &merged.PL3, patchFlags.pl3},
		{"pl4", &merged.PL4, patchFlags.pl4},
		{"tau", &merged.Tau, patchFlags.tau},
		{"vcore", &merged.VcoreOffset, patchFlags.vcore},
		{"ring", &merged.RingOffset, patchFlags.ring},
		{"sa", &merged.SaOffset, patchFlags.sa},
		{"io", &merged.IoOffset, patchFlags.io},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			v := o.value
			*o.dst = &v
		}
	}

	one := 1
	if cmd.Flags().Changed("above-4g") && patchFlags.above4G {
		merged.Above4G = &one
	}
	if cmd.Flags().Changed("rebar") && patchFlags.rebar {
		merged.ResizableBar = &one
	}
	if cmd.Flags().Changed("me-disable") && patchFlags.meDisable {
		merged.MEDisable = &one
	}
	if patchFlags.unlock {
		merged.CfgLock = 0
		merged.OcLock = 0
	}

	logger.LogInfo("profile assembled", map[string]interface{}{
		"base": merged.Name,
	})
	return &merged, nil
}
