package main

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"magic-math-gateway/magicmath/domain"
)

func newComputeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compute <n>...",
		Short: "Compute magic math for one or more numbers and print JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			// sem rate limit: é uma execução local
			cfg.RateLimitEnabled = false

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a.start(ctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return domain.ErrInvalidInput
				}
				res, err := a.orch.ComputeWithCache(ctx, n)
				if err != nil {
					return err
				}
				return enc.Encode(res)
			}

			inputs := make([]any, len(args))
			for i, s := range args {
				inputs[i] = json.Number(s)
			}
			return enc.Encode(map[string]any{"results": a.orch.ComputeBatch(ctx, inputs)})
		},
	}
}
