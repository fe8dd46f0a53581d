package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ingaz2013/sari-sub001/internal/config"
	"github.com/ingaz2013/sari-sub001/internal/sysutil"
)

// cli carries state shared by the subcommands once the root has loaded it.
type cli struct {
	envFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "sari",
		Short:         "Sari - WhatsApp order pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.sweepCmd())
	root.AddCommand(c.migrateCmd())
	return root
}

// load reads the dotenv file (when present), then the environment, and
// configures the global logger.
func (c *cli) load() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	sysutil.SetupLogger(nil, cfg.OTEL.ServiceName, cfg.LogLevel, cfg.LogPretty)
	return nil
}
