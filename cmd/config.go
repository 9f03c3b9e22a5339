package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagConfigJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with the bot token hidden",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if flagConfigJSON {
			out, err := a.admin.ConfigJSON()
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}
		fmt.Print(a.admin.ConfigShow())
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration used by run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.defaults.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fmt.Println("config: ok")
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&flagConfigJSON, "json", false, "Print as JSON")
	configCmd.AddCommand(configShowCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
