package main

import (
	"errors"
	nethttp "net/http"

	"github.com/spf13/cobra"

	"github.com/goodanalysis/transcriptrag/internal/infrastructure/http"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	server := http.NewServer(a.ingest, a.query, addr)
	if err := server.Start(cmd.Context()); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}
