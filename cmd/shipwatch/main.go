package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap(cfg)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		panic(err)
	}
}
