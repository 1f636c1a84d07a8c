package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rinha-relay/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "rinha-relay",
		Short:         "Payment relay: queues payments and settles them on the default or fallback processor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int("workers", 0, "worker pool size (overrides WORKERS)")
	root.PersistentFlags().String("listen", "", "API listen address, unix:/path for a socket (overrides LISTEN_ADDR)")
	_ = v.BindPFlag("workers", root.PersistentFlags().Lookup("workers"))
	_ = v.BindPFlag("listen_addr", root.PersistentFlags().Lookup("listen"))

	root.AddCommand(
		modeCmd(v, "serve", "Run the API and the worker pool in one process", true, true),
		modeCmd(v, "api", "Run only the HTTP API", true, false),
		modeCmd(v, "worker", "Run only the worker pool", false, true),
	)
	return root
}

func modeCmd(v *viper.Viper, use, short string, withAPI, withWorkers bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, withAPI, withWorkers)
		},
	}
}
