package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailtide/mailtide/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.New().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
