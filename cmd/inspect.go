package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octools/go-biospatch/internal/platform"
	"github.com/octools/go-biospatch/internal/security"
	"github.com/octools/go-biospatch/internal/uefi"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Parse a firmware image and report its structure and protections",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	image, err := uefi.Parse(data)
	if err != nil {
		return err
	}

	fmt.Printf("Image: %s (%d bytes)\n\n", args[0], len(data))

	if p, ok := platform.Detect(data); ok {
		fmt.Printf("Platform:       %s (%s, %s PCH)\n", p.Name, p.Manufacturer, p.PCH)
	} else {
		fmt.Println("Platform:       not detected")
	}

	fmt.Printf("Volumes:        %d\n", len(image.Volumes))
	for i, vol := range image.Volumes {
		fmt.Printf("  [%d] offset 0x%08X  length 0x%X  files %d  guid %s\n",
			i, vol.Offset, vol.Size, len(vol.Files), vol.GUID)
	}

	if image.SetupOffset >= 0 {
		fmt.Printf("Setup variable: found at 0x%X (%d bytes)\n", image.SetupOffset, len(image.SetupData))
	} else {
		fmt.Println("Setup variable: not found")
	}

	if dxe := image.FindDXEVolume(); dxe != nil {
		fmt.Printf("DXE volume:     offset 0x%08X (%d files)\n", dxe.Offset, len(dxe.Files))
	}

	status := security.NewAnalyzer(data).Analyze()
	fmt.Println("\nSecurity:")
	fmt.Printf("  Boot Guard:     enabled=%v verified=%v measured=%v\n",
		status.BootGuardEnabled, status.BootGuardVerified, status.BootGuardMeasured)
	if status.MEVersion != "" {
		fmt.Printf("  ME region:      found (version %s)\n", status.MEVersion)
	} else {
		fmt.Printf("  ME region:      found=%v\n", status.MERegionFound)
	}
	fmt.Printf("  PFAT:           %v\n", status.PFATPresent)
	fmt.Printf("  FD locked:      %v\n", status.FDLocked)
	fmt.Printf("  ACM present:    %v\n", status.ACMPresent)
	if status.SafeToFlash {
		fmt.Println("  Safe to flash:  yes")
	} else {
		fmt.Println("  Safe to flash:  NO")
	}
	for _, warning := range status.Warnings {
		fmt.Printf("  ! %s\n", warning)
	}

	if updates := security.FindMicrocodeUpdates(data); len(updates) > 0 {
		fmt.Println("\nMicrocode updates:")
		for _, u := range updates {
			fmt.Printf("  offset 0x%08X  CPUID 0x%08X\n", u.Offset, u.CPUID)
		}
	}

	return nil
}
