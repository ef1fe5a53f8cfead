// Package main is the entry point for magictunnel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/MagicBeansAI/magictunnel-sub010/cmd/magictunnel/app"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
)

func main() {
	logger.Initialize()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	err := app.NewRootCmd().ExecuteContext(ctx)
	code := app.ExitCode(err)
	if err != nil {
		logger.Errorf("error executing command: %v", err)
	}
	if code == app.ExitOK && ctx.Err() != nil {
		code = app.ExitInterrupted
	}
	os.Exit(code)
}
