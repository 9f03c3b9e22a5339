package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coapnotify/internal/logx"

	"github.com/spf13/cobra"
)

var (
	flagConfig          string
	flagExchangeTimeout time.Duration
	flagWaitBudget      time.Duration

	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "coapnotify",
	Short:         "Sensor notifications to a chat relay over CoAP",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		logx.EnableDebug(flagVerbose)
		if flagVerbose {
			logx.Debugf("debug logging enabled")
		}
	})

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML defaults file (default $COAPNOTIFY_CONFIG, else built-in defaults)")
	rootCmd.PersistentFlags().DurationVar(&flagExchangeTimeout, "exchange-timeout", 0, "Timeout of a single CoAP request (0 uses the config value)")
	rootCmd.PersistentFlags().DurationVar(&flagWaitBudget, "wait", 0, "How long to wait for the relay's answer (0 uses the config value)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose debug logging")
}
