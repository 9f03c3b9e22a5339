package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Take one reading from the configured sensor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.admin.Sensor(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sensorCmd)
}
