package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"coapnotify/internal/logx"
	"coapnotify/internal/metrics"
	"coapnotify/internal/shell"
)

var (
	flagMetricsAddr string
	flagNoShell     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Report sensor readings to the relay every interval",
	Long: `Report sensor readings to the relay every interval.

Shell commands are read from stdin while the notifier runs. Typing exit
stops the notifier; end of input only closes the shell. Pass --no-shell
when stdin is not a terminal, for example under a service manager.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.defaults.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		addr := a.defaults.MetricsAddr
		if cmd.Flags().Changed("metrics-addr") {
			addr = flagMetricsAddr
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)

		fmt.Printf("run: relay=%s://[%s]:%s%s interval=%dm chats=%d\n",
			a.transport.Scheme(), a.store.Address(), a.store.Port(), a.store.URIPath(), a.store.Interval(), a.store.ChatCount())
		g.Go(func() error {
			return a.notifier.Run(ctx)
		})

		if addr != "" {
			srv := &http.Server{
				Addr:              addr,
				Handler:           metricsMux(a),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				logx.Infof("metrics listening on %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				return srv.Shutdown(shutdownCtx)
			})
		}

		if !flagNoShell {
			g.Go(func() error {
				err := shell.New(a.admin, os.Stdout).Run(ctx, os.Stdin)
				if errors.Is(err, shell.ErrExit) {
					cancel()
					return nil
				}
				if err == nil && ctx.Err() == nil {
					logx.Infof("shell: end of input, notifier keeps running")
				}
				return err
			})
		}

		return g.Wait()
	},
}

func metricsMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := a.client.Status()
		fmt.Fprintf(w, "ok exchange=%d stage=%s\n", st.ExchangeID, st.Stage)
	})
	return mux
}

func init() {
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
	runCmd.Flags().BoolVar(&flagNoShell, "no-shell", false, "Do not read shell commands from stdin")
	rootCmd.AddCommand(runCmd)
}
