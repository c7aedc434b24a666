package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mshields/arflow/server"
)

// serveCmd exposes the workflow over HTTP. Suspended runs are resumed with
// a POST to /runs/{id}/resume, so a reviewer UI or another service can
// supply the management decision.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the approval workflow over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		reg := prometheus.NewRegistry()
		exec, cleanup, err := buildExecutor(cmd, reg)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewHandler(exec, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
