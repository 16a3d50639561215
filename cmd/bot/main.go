package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"homeworkbot/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	cancel()
	os.Exit(code)
}

// run returns the process exit status: 0 after a signal, 1 when startup or
// a supervised goroutine fails.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "optional path to config json/yaml")
	envPath := fs.String("env", ".env", "dotenv file with PRACTICUM_TOKEN, TELEGRAM_TOKEN, TELEGRAM_CHAT_ID")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := app.New(app.Options{ConfigPath: *cfgPath, DotEnvPath: *envPath})
	if err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return 1
	}

	if err := a.Run(ctx); err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return 1
	}
	return 0
}
