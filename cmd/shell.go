package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"coapnotify/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive administration without the periodic notifier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := shell.New(a.admin, os.Stdout).Run(cmd.Context(), os.Stdin); !errors.Is(err, shell.ErrExit) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
