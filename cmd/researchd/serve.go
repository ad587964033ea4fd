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

	"github.com/dshills/deepresearch/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research HTTP server",
	Long: `Starts the HTTP server exposing batch research, streaming
research over SSE, memory listing, health, and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		app, err := buildApp(cmd.Context(), cfgPath)
		if err != nil {
			return err
		}
		defer app.close()

		if addr == "" {
			addr = app.cfg.Server.Address
		}

		srv := server.New(app.workflow, app.memory, app.health, app.registry)

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("researchd listening on %s (llm=%s search=%s store=%s)\n",
				addr, app.cfg.LLM.Provider, app.cfg.Search.Provider, app.health.StoreBackend)
			serverErrors <- srv.Start(addr)
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case sig := <-shutdown:
			fmt.Printf("shutting down (%v)\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
