package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/octools/go-biospatch/internal/engine"
	"github.com/octools/go-biospatch/internal/platform"
)

var settingsFlags struct {
	platformID string
	filter     string
}

var settingsCmd = &cobra.Command{
	Use:   "settings <image>",
	Short: "List the settings discoverable in a firmware image",
	Long: `List settings discovered from the image's forms data, with their
Setup offsets and sizes. When discovery finds nothing, the pinned or
detected platform's static table is listed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().StringVar(&settingsFlags.platformID, "platform", "", "pin the target platform")
	settingsCmd.Flags().StringVar(&settingsFlags.filter, "filter", "", "only show settings whose name contains this string")
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	eng := engine.New()
	if settingsFlags.platformID != "" {
		if err := eng.SetPlatform(settingsFlags.platformID); err != nil {
			return err
		}
	}
	if err := eng.Load(args[0]); err != nil {
		return err
	}

	discovered := eng.Settings()
	if len(discovered) > 0 {
		fmt.Printf("%-50s %-8s %-5s %s\n", "NAME", "OFFSET", "SIZE", "KIND")
		for _, s := range discovered {
			if !matchesFilter(s.Name) {
				continue
			}
			fmt.Printf("%-50s 0x%04X   %-5d %s\n", s.Name, s.Offset, s.Size, s.Kind)
		}
		return nil
	}

	p := eng.Platform()
	if p == nil {
		return fmt.Errorf("no settings discovered and no platform detected")
	}
	fmt.Printf("No settings discovered from forms data; static table for %s:\n\n", p.Name)
	fmt.Printf("%-10s %-8s %-5s %s\n", "NAME", "OFFSET", "SIZE", "DESCRIPTION")
	for _, name := range sortedOffsetNames(p) {
		if !matchesFilter(name) {
			continue
		}
		entry := p.StaticOffsets[name]
		fmt.Printf("%-10s 0x%04X   %-5d %s\n", name, entry.Offset, entry.Size, entry.Description)
	}
	return nil
}

func matchesFilter(name string) bool {
	if settingsFlags.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(settingsFlags.filter))
}

// sortedOffsetNames orders by offset so the listing reads like a memory
// map.
func sortedOffsetNames(p *platform.Platform) []string {
	names := make([]string, 0, len(p.StaticOffsets))
	for name := range p.StaticOffsets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return p.StaticOffsets[names[i]].Offset < p.StaticOffsets[names[j]].Offset
	})
	return names
}
