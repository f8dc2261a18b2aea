package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fastboot/fastboot/pkg/protocol"
)

var flashCmd = &cobra.Command{
	Use:   "flash <partition> <image>",
	Short: "Flash an image onto a partition",
	Long: `Flash an image file onto a named partition.

Examples:
  # Flash a boot image
  go-fastboot flash boot boot.img --serial tcp:192.168.1.5:5554

  # Flash recovery without the progress bar
  FASTBOOT_SHOW_PROGRESS=false go-fastboot flash recovery recovery.img`,

	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFlash(args[0], args[1]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(flashCmd)
}

func runFlash(partition, image string) error {
	cfg, err := LoadFlashConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(image)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	var opts []protocol.Option
	if cfg.ShowProgress {
		bar := progressbar.NewOptions64(
			int64(len(data)),
			progressbar.OptionSetDescription(fmt.Sprintf("Sending '%s'", partition)),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
		opts = append(opts, protocol.WithProgress(bar))
	}

	client, reopen, err := openDevice(cfg, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	session := newSession(cfg, reopen)
	if err := session.QueueFlash(partition, data); err != nil {
		return err
	}
	return session.Execute(client)
}
