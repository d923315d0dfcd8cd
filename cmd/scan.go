package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octools/go-biospatch/internal/config"
	"github.com/octools/go-biospatch/internal/vtscan"
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Check a firmware image's hash against VirusTotal",
	Long: `Hash the image and look the SHA256 up in the VirusTotal database.
The image itself is never uploaded. Requires an API key in the config
(virustotal.api_key) or the BIOSPATCH_VIRUSTOTAL_API_KEY environment
variable.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := vtscan.Initialize(config.Instance.VirusTotal.APIKey); err != nil {
		return err
	}

	hashes, report, err := vtscan.ScanImage(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:    %s (%d bytes)\n", args[0], hashes.Size)
	fmt.Printf("MD5:     %s\n", hashes.MD5)
	fmt.Printf("SHA1:    %s\n", hashes.SHA1)
	fmt.Printf("SHA256:  %s\n\n", hashes.SHA256)

	if !report.Found {
		fmt.Println("Not present in the VirusTotal database (expected for OEM firmware dumps).")
		return nil
	}

	fmt.Printf("Detections: %d/%d\n", report.Positives, report.Total)
	if report.TypeDesc != "" {
		fmt.Printf("Type:       %s\n", report.TypeDesc)
	}
	fmt.Printf("Report:     %s\n", report.Permalink)
	return nil
}
