// ABOUTME: Entry point for the pokercircle membership server
// ABOUTME: Commands: serve, init, bootstrap (first administrator) and health

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/2389/pokercircle/internal/config"
	"github.com/2389/pokercircle/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _                      _          _
 _ __   ___ | | _____ _ __ ___ ___ (_)_ __ ___| | ___
| '_ \ / _ \| |/ / _ \ '__/ __/ _ \| | '__/ __| |/ _ \
| |_) | (_) |   <  __/ | | (_| (_) | | | | (__| |  __/
| .__/ \___/|_|\_\___|_|  \___\___/|_|_|  \___|_|\___|
|_|
`

// defaultConfigPath returns the path to the config file.
// Priority: XDG_CONFIG_HOME/pokercircle/config.yaml > ~/.config/pokercircle/config.yaml
func defaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pokercircle", "config.yaml")
}

// defaultDataPath returns the path to the pokercircle data directory.
// Priority: XDG_DATA_HOME/pokercircle > ~/.local/share/pokercircle
func defaultDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "pokercircle")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pokercircle",
		Usage:   "Membership site for a poker circle",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML or TOML config file",
				EnvVars: []string{"POKERCIRCLE_CONFIG"},
				Value:   defaultConfigPath(),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Action: runServe,
			},
			{
				Name:   "init",
				Usage:  "Create a new config file interactively",
				Action: runInit,
			},
			{
				Name:  "bootstrap",
				Usage: "Create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "member-number",
						Aliases:  []string{"m"},
						Usage:    "member number the administrator logs in with",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "display name",
						Required: true,
					},
				},
				Action: runBootstrap,
			},
			{
				Name:   "health",
				Usage:  "Check server readiness",
				Action: runHealth,
			},
		},
	}
}

// loadConfig reads the config file at path. A missing file falls back to
// defaults plus POKERCIRCLE_* environment variables.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("no config file at %s and environment is incomplete: %w", path, err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func runServe(c *cli.Context) error {
	configPath := c.String("config")

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Sessions:  %s", cfg.Session.Backend)
	if cfg.Session.Backend == config.BackendRedis {
		gray.Printf(" (%s)", cfg.Redis.Addr)
	}
	fmt.Println()

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}

	fmt.Println()

	logger.Info("starting pokercircle",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(c.Context)
}

func runHealth(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
