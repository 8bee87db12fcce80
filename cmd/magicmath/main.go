package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configFile string
}

// load lê a config com as flags do comando já parseadas.
func (o *rootOptions) load(cmd *cobra.Command) (config, *logrus.Logger, error) {
	v, err := newViper(o.configFile, cmd.Flags())
	if err != nil {
		return config{}, nil, err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return config{}, nil, err
	}
	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return config{}, nil, err
	}
	return cfg, log, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "magicmath",
		Short:         "Magic Math API: cached, rate-limited f(n) = f(n-1) + f(n-2) + n",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	root.PersistentFlags().String("cache-backend", "", "redis, memory or none (CACHE_BACKEND)")
	root.PersistentFlags().String("redis-url", "", "Redis URL (REDIS_URL)")
	root.PersistentFlags().String("log-level", "", "log level (LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(opts),
		newComputeCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
