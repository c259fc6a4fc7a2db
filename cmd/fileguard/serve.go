package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/ctxguard"
	"github.com/oriys/ctxguard/internal/config"
	"github.com/oriys/ctxguard/internal/demoserver"
	"github.com/oriys/ctxguard/internal/logging"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		readable  []string
		writable  []string
		listable  []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo HTTP server behind a file-access controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)

			rt := ctxguard.NewRuntime(cfg)
			defer rt.Close()

			opts := ctxguard.FileAccessOptions{
				Readable: toAnySlice(readable),
				Writable: toAnySlice(writable),
				Listable: toAnySlice(listable),
			}
			if rt.Metrics != nil {
				opts.Metrics = rt.Metrics
			}

			handler := demoserver.NewHandler(opts, readFileAsString)

			mux := http.NewServeMux()
			mux.Handle("/", handler)
			if rt.Metrics != nil {
				mux.Handle("/metrics", rt.Metrics.Handler())
			}

			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				logging.Op().Info("fileguard serve listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logging.Op().Error("fileguard serve failed", "error", err)
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringSliceVar(&readable, "readable", nil, "readable path pattern (repeatable)")
	cmd.Flags().StringSliceVar(&writable, "writable", nil, "writable path pattern (repeatable)")
	cmd.Flags().StringSliceVar(&listable, "listable", nil, "listable path pattern (repeatable)")
	return cmd
}

func toAnySlice(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func readFileAsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
