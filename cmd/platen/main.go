package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"platen/internal/app"
	"platen/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	period := flag.String("period", "", "accounting period YYYY-MM (defaults to the current month)")
	server := flag.String("server", "", "override ledger service URL (optional)")
	pollSeconds := flag.Int("poll", 0, "health poll interval in seconds (optional, defaults to 5s)")
	login := flag.Bool("login", false, "prompt for an API token, store it and exit")
	flag.Parse()

	if *login {
		if err := storeToken(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "platen: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		Period:     *period,
		ServerURL:  *server,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "platen: %v\n", err)
		return 1
	}
	return 0
}

// storeToken prompts for the API token without echoing it and writes it to
// the configured token file.
func storeToken(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Fprint(os.Stderr, "API token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return fmt.Errorf("empty token")
	}

	if err := app.WriteToken(cfg.Server.TokenFile, token); err != nil {
		return err
	}
	fmt.Printf("token stored at %s\n", cfg.Server.TokenFile)
	return nil
}
