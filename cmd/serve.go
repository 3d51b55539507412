// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/priscom/paybridge/internal/agent"
	"github.com/priscom/paybridge/internal/bridge"
	"github.com/priscom/paybridge/internal/config"
	"github.com/priscom/paybridge/pkg/datecs"
)

var (
	serveNoAgent  bool
	serveHTTPPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge and the job agent",
	Long: `Start the device bridge: open the configured serial devices, serve the
local HTTP API, and run the backend job agent alongside it.

The process stays up even when some devices fail to open; requests to a
disconnected device answer 503 so operators can see which cable to check.
Use --no-agent to serve the HTTP API without connecting to the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoAgent, "no-agent", false, "Serve the HTTP API without the backend job agent")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "Listen port for the HTTP API (overrides HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := config.Load()
	if serveHTTPPort != 0 {
		cfg.HTTPPort = serveHTTPPort
	}

	reg := bridge.NewRegistry(cfg)
	defer reg.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: bridge.NewServer(reg).Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] HTTP API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if !serveNoAgent {
		go newWorker(cfg, reg).Run(ctx)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[serve] shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// newWorker wires the job agent onto an already opened device registry.
func newWorker(cfg config.Config, reg *bridge.Registry) *agent.Worker {
	return &agent.Worker{
		BackendURL: cfg.Agent.BackendURL,
		Key:        cfg.Agent.Key,
		Orchestrator: &agent.Orchestrator{
			Devices: agent.NewRegistrySource(reg),
			Session: datecs.Session{
				Operator: cfg.Agent.Operator,
				Password: cfg.Agent.Password,
				Till:     cfg.Agent.Till,
			},
			DefaultDev: cfg.Agent.DefaultDev,
		},
		Reporter: agent.NewReporter(cfg.Agent.BackendURL, cfg.Agent.Key),
	}
}
