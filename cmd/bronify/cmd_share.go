package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/bronify/internal/export"
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share card hosting",
}

var shareServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cards in the output directory over HTTP",
	Long: `Hosts exported cards at /cards/{name}.png so the QR code on a card (see
--share-url) opens it on a phone. GET /cards lists the available cards.`,
	Args: cobra.NoArgs,
	RunE: runShareServe,
}

func init() {
	shareServeCmd.Flags().StringVar(&cfg.ShareAddr, "addr", ":8080", "Listen address")
	shareCmd.AddCommand(shareServeCmd)
}

func runShareServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := export.NewServer(cfg.OutputDir, cfg.ShareURL, logger)
	fmt.Printf("[*] Serving cards from %s on %s\n", cfg.OutputDir, cfg.ShareAddr)
	return srv.ListenAndServe(ctx, cfg.ShareAddr)
}
