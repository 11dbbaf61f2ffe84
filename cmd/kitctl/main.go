// Command kitctl authors Kitfiles and drives the KitOps kit CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kitops-ml/kitops-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, nil, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
