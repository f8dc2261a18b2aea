package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/htczip"
)

var flashZipCmd = &cobra.Command{
	Use:   "flash-zip <container>",
	Short: "Flash a compound update container",
	Long: `Flash an HTC compound update container, detecting the format
from the file itself: a largezip (concatenated sub-zips behind an index
header) or a multizip (a ZIP archive of zip_<n>.zip entries).

Sub-images are flashed one at a time. When the bootloader answers a
flash with its pre-update marker, the tool pauses for the settle
interval, reopens the transport, waits on the reopened transport for the
device to disconnect, and retries the same sub-image before moving on.

Examples:
  go-fastboot flash-zip rom.zip --serial tcp:192.168.1.5:5554`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFlashZip(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(flashZipCmd)
}

func runFlashZip(path string) error {
	cfg, err := LoadFlashConfig()
	if err != nil {
		return err
	}

	client, reopen, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	session := newSession(cfg, reopen)
	settle := htczip.WithSettle(time.Duration(cfg.SettleSeconds) * time.Second)

	if large, err := htczip.OpenLargeZip(session, path, settle); err == nil {
		defer large.Close()
		if err := large.QueueNext(); err != nil {
			return err
		}
		return session.Execute(client)
	} else if !errors.Is(err, htczip.ErrBadMagic) {
		return err
	}

	multi, err := htczip.OpenMultiZip(session, path, settle)
	if err != nil {
		return fmt.Errorf("%s is neither a largezip nor a multizip container: %w", path, err)
	}
	defer multi.Close()
	if err := multi.QueueNext(); err != nil {
		return err
	}
	if err := session.Execute(client); err != nil {
		return err
	}
	if multi.Index() == 0 {
		fmt.Fprintf(os.Stderr, "no zip_0.zip entry found in %s\n", path)
	}
	return nil
}
