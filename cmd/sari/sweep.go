package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (c *cli) sweepCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one abandoned-cart sweep and print the result",
		Long: `Send recovery reminders for carts abandoned longer than CART_ABANDON_AFTER.

Suitable for cron. The result is printed as JSON on stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("close resources")
				}
			}()
			if cmd.Flags().Changed("limit") {
				a.Carts.Limit = limit
			}

			res, err := a.Carts.Sweep(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum carts to remind (overrides CART_SWEEP_LIMIT)")
	return cmd
}
