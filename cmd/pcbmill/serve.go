package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(g *globalOpts) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the machine control API and status event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = g.cfg.Server.Addr
			}

			tg, finalize, err := g.openMachine(ctx)
			if err != nil {
				return err
			}
			defer finalize()

			a := newAPI(tg, g.log, g.workpiece, g.cfg.Leveling)

			srv := &http.Server{Addr: addr, Handler: withCORS(g.log, a)}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			g.log.Info("listening", "addr", addr)

			select {
			case err = <-errCh:
				a.Close()
				return err
			case <-ctx.Done():
			}

			g.log.Info("shutting down")
			a.Close()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = srv.Shutdown(sctx)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from config)")
	return cmd
}

func withCORS(l *log.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		l.Debug("request", "method", req.Method, "path", req.URL.Path, "remote", req.RemoteAddr)
		h.ServeHTTP(w, req)
	})
}
