package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global device selection and output flags
	serial  string
	verbose bool
	product string
)

var rootCmd = &cobra.Command{
	Use:   "go-fastboot",
	Short: "Flashing client for devices in bootloader mode",
	Long: `go-fastboot talks to a device in bootloader mode over a bulk
transport and drives it through flashing operations: querying
variables, uploading images, flashing partitions, erasing, rebooting,
and selecting the active slot.

Beyond single partitions it flashes the two HTC compound update
containers (multizip and largezip), including the mid-flash
disconnect/reconnect cycle the bootloader triggers between sub-images.

Commands:
  flash       Flash an image onto a partition
  flash-zip   Flash a compound update container
  erase       Erase a partition
  getvar      Display a bootloader variable
  reboot      Reboot the device
  set-active  Select the active slot`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serial, "serial", "s", "", "device transport, e.g. tcp:192.168.1.5:5554")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&product, "product", "", "current device product name for require checks")
}
