// addrslips manages canvassing-campaign project archives from the command line.
//
// Each command opens a project archive, does its work, saves and closes it:
//
//	addrslips init campaign.addrslips --name "Spring Canvass" --target 1500
//	addrslips add-area campaign.addrslips --name "Old Town" --color '#ff0000' --image map.png
//	addrslips set-state campaign.addrslips --area 1 --state addresses_detected
//	addrslips teams campaign.addrslips --area 1
//	addrslips info campaign.addrslips
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line, separated from main for testability.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}
