package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var flagSendTo string

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message to a chat through the relay",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		message := strings.Join(args, " ")
		fmt.Printf("send: relay=[%s]:%s%s to=%s\n", a.store.Address(), a.store.Port(), a.store.URIPath(), flagSendTo)
		res, err := a.admin.CoapSend(cmd.Context(), flagSendTo, message)
		if err != nil {
			return err
		}
		fmt.Printf("sent: exchange=%d stage=%s rtt=%s\n", res.ExchangeID, res.Stage, res.RTT.Round(time.Millisecond))
		return nil
	},
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Ask the relay for pending commands and apply them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.admin.CoapRequestUpdates(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("updates: exchange=%d stage=%s rtt=%s\n", res.ExchangeID, res.Stage, res.RTT.Round(time.Millisecond))
		fmt.Print(a.admin.ConfigShow())
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&flagSendTo, "to", "all", `Chat name, or "all" for every configured chat`)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(updatesCmd)
}
