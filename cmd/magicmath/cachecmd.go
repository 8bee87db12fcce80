package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove every entry from the cache store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			cfg.RateLimitEnabled = false

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			if a.store == nil {
				return errors.New("no cache configured (CACHE_BACKEND=none)")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if a.redis != nil {
				if err := a.redis.Init(ctx); err != nil {
					return err
				}
			}
			if err := a.store.FlushAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache %s flushed\n", a.store.Name())
			return nil
		},
	}

	cmd.AddCommand(flushCmd)
	return cmd
}
