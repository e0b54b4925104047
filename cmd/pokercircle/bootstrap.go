// ABOUTME: The bootstrap command: creates an administrator account from the terminal
// ABOUTME: Writes a starter config with a random session secret when none exists

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/config"
	"github.com/2389/pokercircle/internal/server"
	"github.com/2389/pokercircle/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

func runBootstrap(c *cli.Context) error {
	memberNumber := strings.TrimSpace(c.String("member-number"))
	displayName := strings.TrimSpace(c.String("name"))
	if memberNumber == "" {
		return fmt.Errorf("member number cannot be empty or whitespace only")
	}
	if displayName == "" {
		return fmt.Errorf("display name cannot be empty or whitespace only")
	}
	if len(displayName) > 100 {
		return fmt.Errorf("display name exceeds maximum length of 100 characters")
	}

	configPath := c.String("config")
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	created, err := ensureConfig(configPath, defaultDataPath())
	if err != nil {
		return err
	}
	if created {
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	password, err := promptPassword(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	member, err := bootstrapAdmin(c.Context, cfg, memberNumber, displayName, password)
	if err != nil {
		return err
	}

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)
	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Administrator")
	cyan.Println("  -------------")
	fmt.Printf("  ID:            %s\n", member.ID)
	fmt.Printf("  Member number: %s\n", member.MemberNumber)
	fmt.Printf("  Display name:  %s\n", member.DisplayName)
	fmt.Printf("  Role:          %s\n", member.Role)
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    pokercircle serve    # start the server, then log in at /login")
	fmt.Println()

	return nil
}

// bootstrapAdmin creates an administrator with the configured password policy.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, memberNumber, displayName, password string) (*store.Member, error) {
	s, err := server.OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	gate := server.NewGate(cfg, s)
	member, err := gate.Register(ctx, auth.RegisterInput{
		MemberNumber: memberNumber,
		DisplayName:  displayName,
		Role:         store.RoleAdmin,
		Password:     password,
	})
	if errors.Is(err, auth.ErrDuplicateMember) {
		return nil, fmt.Errorf("member number %s is already registered", memberNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("creating administrator: %w", err)
	}
	return member, nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// asking twice. Piped input is read as a single line.
func promptPassword(in *os.File, w io.Writer) (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "  Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(w, "  Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

// ensureConfig writes a starter config at path unless one exists. It reports
// whether a file was written.
func ensureConfig(path, dataPath string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking config file: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return false, fmt.Errorf("creating data directory: %w", err)
	}

	content := renderConfig(initAnswers{
		HTTPAddr:  "localhost:3500",
		DBPath:    filepath.Join(dataPath, "pokercircle.db"),
		Secret:    secret,
		Backend:   config.BackendSQLite,
		LogLevel:  "info",
		LogFormat: "text",
	}, "bootstrap")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return false, fmt.Errorf("writing config file: %w", err)
	}
	return true, nil
}

// generateSecret returns a random base64 session secret.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
