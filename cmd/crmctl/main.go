// Command crmctl is a thin terminal front end for the CRM client core.
//
//	crmctl login --email admin@example.com --password admin123
//	crmctl tasks --customer 2
//	crmctl advance 2
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/etiya/crm-client/internal/infrastructure/config"
	"github.com/etiya/crm-client/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A CLI forgets its login between runs unless the token lives on disk.
	if _, ok := os.LookupEnv("TOKEN_STORE"); !ok {
		_ = os.Setenv("TOKEN_STORE", config.TokenStoreFile)
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "crmctl"})

	os.Exit(run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr))
}
