package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/app"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/config"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/settings"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "init":
		initCmd(os.Args[2:])
	case "run":
		runCmd(os.Args[2:])
	case "set-key":
		setKeyCmd(os.Args[2:])
	case "version":
		fmt.Printf("vidya-ai %s (%s) %s\n", Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `vidya-ai

Usage:
  vidya-ai init [flags]
  vidya-ai run [flags]
  vidya-ai set-key [flags]
  vidya-ai version

Commands:
  init      Write a default config file.
  run       Run the server using the local config file.
  set-key   Store an API key for a configured model provider.
  version   Print build information.

`)
}

func initCmd(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := filepath.Clean(*cfgPath)
	if !*force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "config already exists: %s (use -force to overwrite)\n", path)
			os.Exit(1)
		}
	}

	if err := config.Save(path, config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "write config failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written: %s\n", path)
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	_ = fs.Parse(args)

	cfg, err := config.Load(filepath.Clean(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(app.Options{
		Config:  cfg,
		Version: Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func setKeyCmd(args []string) {
	fs := flag.NewFlagSet("set-key", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	providerID := fs.String("provider", "", "Provider id from config (e.g. openai)")
	apiKey := fs.String("key", "", "API key value")
	_ = fs.Parse(args)

	if *providerID == "" || *apiKey == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(filepath.Clean(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if _, ok := cfg.FindProvider(*providerID); !ok {
		fmt.Fprintf(os.Stderr, "provider %q is not configured\n", *providerID)
		os.Exit(1)
	}

	secrets := settings.NewSecrets(filepath.Join(cfg.ResolvedDataDir(), "secrets.json"))
	if err := secrets.SetProviderAPIKey(*providerID, *apiKey); err != nil {
		fmt.Fprintf(os.Stderr, "store api key failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("API key stored for provider %q\n", *providerID)
}
