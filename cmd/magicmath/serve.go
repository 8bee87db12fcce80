package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Magic Math HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			a.start(ctx)

			ln, err := listen(cfg.Port, cfg.PortAttempts, func(port int, err error) {
				log.WithError(err).WithField("port", port).Warn("port in use, trying next")
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Handler:           a.handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       90 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.WithField("addr", ln.Addr().String()).Infof("magic math listening on http://%s/", ln.Addr())
			log.Infof("cache: backend=%s connected=%v ttl=%s", a.orch.CacheBackend(), a.orch.CacheConnected(), cfg.CacheTTL)
			log.Infof("rate: enabled=%v max=%d window=%s", cfg.RateLimitEnabled, cfg.RateLimitMax, cfg.RateLimitWindow)
			log.Infof("concurrency: max=%d acquireTimeout=%s", cfg.ConcurrencyMax, cfg.ConcurrencyTimeout)

			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "serving")
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().Int("port", 5000, "first port to try (PORT)")
	return cmd
}

// listen tenta port, port+1, ... até attempts portas. Só "address in use" faz
// avançar; qualquer outro erro encerra.
func listen(port, attempts int, onBusy func(port int, err error)) (net.Listener, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		p := port + i
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(p))
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrapf(err, "listening on port %d", p)
		}
		if onBusy != nil {
			onBusy(p, err)
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "no free port in %d..%d", port, port+attempts-1)
}
