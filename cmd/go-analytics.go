package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/go-analytics/pkg/config"
	"github.com/adfharrison1/go-analytics/pkg/logger"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"port":             "server.port",
	"request-timeout":  "server.request_timeout",
	"backend":          "storage.backend",
	"data-dir":         "storage.data_dir",
	"max-memory":       "storage.max_memory_mb",
	"background-save":  "storage.background_save",
	"transaction-save": "storage.transaction_save",
	"redis-addr":       "redis.addr",
	"redis-db":         "redis.db",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
}

// app carries the configuration shared by every command.
type app struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "go-analytics",
		Short: "Aggregation pipelines and analytics reports over document collections",
		Long: `go-analytics stores documents in named collections and evaluates
aggregation pipelines ($match, $group, $sort, $project, $unwind, $lookup)
over them, over HTTP or from the command line.

Without --background-save or --transaction-save the memory backend only
writes collections to disk on graceful shutdown.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (YAML)")
	flags.Int("port", defaults.Server.Port, "server port")
	flags.Duration("request-timeout", defaults.Server.RequestTimeout, "per-request deadline, 0 disables it")
	flags.String("backend", defaults.Storage.Backend, "storage backend: memory or redis")
	flags.String("data-dir", defaults.Storage.DataDir, "data directory of the memory backend")
	flags.Int("max-memory", defaults.Storage.MaxMemoryMB, "memory budget of the collection cache in MB")
	flags.Duration("background-save", defaults.Storage.BackgroundSave, "background save interval (e.g. 5m), 0 disables it")
	flags.Bool("transaction-save", defaults.Storage.TransactionSave, "save a collection after every insert")
	flags.String("redis-addr", defaults.Redis.Addr, "redis server address")
	flags.Int("redis-db", defaults.Redis.DB, "redis database number")
	flags.String("log-level", defaults.Logging.Level, "log level")
	flags.String("log-format", defaults.Logging.Format, "log format: console or json")

	root.AddCommand(newServeCmd(a), newAggregateCmd(a), newReportCmd(a))
	return root
}

// load resolves the configuration from defaults, file, environment and
// flags, in increasing priority, and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
