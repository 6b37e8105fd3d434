// Package main starts the point-of-sale sync client and handles
// termination.
//
// The process keeps a local cart and inventory view consistent with the
// server over a push event channel plus the orders REST API; rendering and
// input capture live in external collaborators.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	poscmd "github.com/Smarticus81/bevpro-sync/internal/cmd/pos"
	"github.com/Smarticus81/bevpro-sync/internal/platform/config"
)

func main() {
	cfg, err := poscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[POS] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := poscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to run: %v", err)
	}
}
