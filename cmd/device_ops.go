package cmd

import (
	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:   "erase <partition>",
	Short: "Erase a partition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runSimple(func(s sessionQueuer) {
			s.QueueErase(args[0])
		}))
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the device",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runSimple(func(s sessionQueuer) {
			s.QueueReboot()
		}))
	},
}

var setActiveCmd = &cobra.Command{
	Use:   "set-active <slot>",
	Short: "Select the active slot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runSimple(func(s sessionQueuer) {
			s.QueueSetActive(args[0])
		}))
	},
}

var getvarCmd = &cobra.Command{
	Use:   "getvar <variable>",
	Short: "Display a bootloader variable",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(runSimple(func(s sessionQueuer) {
			s.QueueDisplay(args[0], args[0])
		}))
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd, rebootCmd, setActiveCmd, getvarCmd)
}

// sessionQueuer is the slice of the session API the one-shot commands
// need.
type sessionQueuer interface {
	QueueErase(partition string)
	QueueReboot()
	QueueSetActive(slot string)
	QueueDisplay(variable, pretty string)
}

// runSimple opens the device, lets enqueue build the queue, and drains it.
func runSimple(enqueue func(sessionQueuer)) error {
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
	enqueue(session)
	return session.Execute(client)
}
