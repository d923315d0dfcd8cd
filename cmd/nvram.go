package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octools/go-biospatch/internal/nvram"
)

var nvramCmd = &cobra.Command{
	Use:   "nvram",
	Short: "Back up or restore the live Setup variable via efivarfs",
	Long: `Read or write the running system's Setup EFI variable. Linux only,
requires root and a mounted efivarfs. Restoring an incompatible Setup
payload can leave the system unbootable until CMOS reset.`,
}

var nvramBackupCmd = &cobra.Command{
	Use:   "backup <file>",
	Short: "Save the live Setup variable to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := nvram.New()
		if err != nil {
			return err
		}
		if err := store.BackupSetup(args[0]); err != nil {
			return err
		}
		fmt.Printf("Setup variable saved to %s\n", args[0])
		return nil
	},
}

var nvramRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Write a saved Setup payload back to NVRAM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := nvram.New()
		if err != nil {
			return err
		}
		if err := store.RestoreSetup(args[0]); err != nil {
			return err
		}
		fmt.Printf("Setup variable restored from %s\n", args[0])
		return nil
	},
}

func init() {
	nvramCmd.AddCommand(nvramBackupCmd)
	nvramCmd.AddCommand(nvramRestoreCmd)
	rootCmd.AddCommand(nvramCmd)
}
