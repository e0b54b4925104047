// ABOUTME: The init command: asks a few questions and writes a YAML config file
// ABOUTME: A random session secret is generated; nothing secret is prompted for

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/2389/pokercircle/internal/config"
)

// initAnswers holds everything renderConfig needs.
type initAnswers struct {
	HTTPAddr  string
	Timezone  string
	DBPath    string
	Secret    string
	Backend   string
	RedisAddr string

	TailscaleEnabled bool
	TSHostname       string
	TSAuthKey        string
	TSEphemeral      bool
	TSFunnel         bool

	LogLevel  string
	LogFormat string
	Metrics   bool
}

func runInit(c *cli.Context) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("pokercircle configuration setup")
	fmt.Println("===============================")
	fmt.Println()

	outputFile := prompt(reader, os.Stdout, "Config file path", c.String("config"))

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, os.Stdout, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	answers := askInit(reader, os.Stdout, filepath.Join(defaultDataPath(), "pokercircle.db"))
	answers.Secret = secret

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderConfig(answers, "init")), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(answers.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nNext steps:")
	fmt.Println("  pokercircle bootstrap --member-number 1 --name \"Your Name\"")
	fmt.Println("  pokercircle serve")

	return nil
}

// askInit runs the interactive questions.
func askInit(reader *bufio.Reader, w io.Writer, defaultDB string) initAnswers {
	var a initAnswers

	fmt.Fprintln(w, "\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, w, "HTTP address", "localhost:3500")
	a.Timezone = prompt(reader, w, "Timezone (empty for local time)", "")

	fmt.Fprintln(w, "\n--- Storage Configuration ---")
	a.DBPath = prompt(reader, w, "SQLite database path", defaultDB)
	a.Backend = prompt(reader, w, "Session backend (sqlite/redis)", config.BackendSQLite)
	if a.Backend == config.BackendRedis {
		a.RedisAddr = prompt(reader, w, "Redis address", "localhost:6379")
	}

	fmt.Fprintln(w, "\n--- Tailscale Configuration ---")
	a.TailscaleEnabled = yes(prompt(reader, w, "Enable Tailscale?", "no"))
	if a.TailscaleEnabled {
		a.TSHostname = prompt(reader, w, "Tailscale hostname", "pokercircle")
		a.TSAuthKey = prompt(reader, w, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSEphemeral = yes(prompt(reader, w, "Ephemeral node?", "no"))
		a.TSFunnel = yes(prompt(reader, w, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Fprintln(w, "\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, w, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, w, "Log format (text/json)", "text")
	a.Metrics = yes(prompt(reader, w, "Expose Prometheus metrics?", "no"))

	return a
}

// renderConfig produces the YAML config file for a.
func renderConfig(a initAnswers, generator string) string {
	var cfg strings.Builder
	cfg.WriteString("# pokercircle configuration\n")
	cfg.WriteString(fmt.Sprintf("# Generated by pokercircle %s\n\n", generator))

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", a.HTTPAddr))
	if a.Timezone != "" {
		cfg.WriteString(fmt.Sprintf("  timezone: %q\n", a.Timezone))
	}
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.DBPath))
	cfg.WriteString("\n")

	backend := a.Backend
	if backend == "" {
		backend = config.BackendSQLite
	}
	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  secret: %q\n", a.Secret))
	cfg.WriteString(fmt.Sprintf("  backend: %q\n", backend))
	cfg.WriteString("  duration: \"168h\"\n")
	cfg.WriteString("  sweep_interval: \"1h\"\n")
	cfg.WriteString("  rotate_on_auth: true\n")
	cfg.WriteString("\n")

	if backend == config.BackendRedis {
		cfg.WriteString("redis:\n")
		cfg.WriteString(fmt.Sprintf("  addr: %q\n", a.RedisAddr))
		cfg.WriteString("  prefix: \"pokercircle\"\n")
		cfg.WriteString("\n")
	}

	cfg.WriteString("auth:\n")
	cfg.WriteString("  min_password_length: 8\n")
	cfg.WriteString("  login_burst: 5\n")
	cfg.WriteString("  login_refill: \"1m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.TailscaleEnabled))
	if a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TSHostname))
		if a.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", a.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", a.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", a.TSFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.Metrics))
	cfg.WriteString("  path: \"/metrics\"\n")

	return cfg.String()
}

func prompt(reader *bufio.Reader, w io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(w, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(w, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(w)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func yes(answer string) bool {
	a := strings.ToLower(answer)
	return a == "yes" || a == "y"
}
