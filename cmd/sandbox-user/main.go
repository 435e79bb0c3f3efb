package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"momo-gateway/pkg/logger"
	"momo-gateway/pkg/sandbox"
)

func main() {
	subscriptionKey := flag.String("subscription-key", os.Getenv("MOMO_SUBSCRIPTION_KEY"), "collections product subscription key")
	callbackHost := flag.String("callback-host", sandbox.DefaultCallbackHost, "host of every callback url the api user will use")
	verbose := flag.Bool("verbose", false, "log requests to stderr")
	flag.Parse()

	level := logger.WarnLevel
	if *verbose {
		level = logger.DebugLevel
	}
	log, err := logger.NewLogger(&logger.Config{Level: level, Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if *subscriptionKey == "" {
		flag.Usage()
		os.Exit(2)
	}

	provisioner, err := sandbox.NewProvisioner(sandbox.Config{
		SubscriptionKey: *subscriptionKey,
		CallbackHost:    *callbackHost,
		Logger:          log,
	})
	if err != nil {
		log.Fatalf("Failed to configure provisioner: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := provisioner.Provision(ctx)
	if err != nil {
		log.Fatalf("Failed to create sandbox credentials: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(creds); err != nil {
		log.Fatalf("Failed to write credentials: %v", err)
	}
}
