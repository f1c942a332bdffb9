package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// validatePublicKey accepts an empty answer (configure later) or a 32-byte
// hex-encoded Ed25519 key.
func validatePublicKey(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return errors.New("public key must be hex encoded")
	}
	if len(b) != 32 {
		return fmt.Errorf("public key must be 32 bytes, got %d", len(b))
	}
	return nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return errors.New("port must be a number between 1 and 65535")
	}
	return nil
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to opbot! Let's configure the interactions gateway.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Application public key.
	keyPrompt := promptui.Prompt{
		Label:    "Application public key (hex, blank to set DISCORD_PUBLIC_KEY later)",
		Validate: validatePublicKey,
	}
	publicKey, err := keyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	cfg.PublicKey = strings.TrimSpace(publicKey)

	// 2. Application ID, needed for follow-up messages.
	appPrompt := promptui.Prompt{
		Label: "Application ID",
	}
	appID, err := appPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("application id: %w", err)
	}
	cfg.ApplicationID = strings.TrimSpace(appID)

	// 3. Listen port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	// 4. Database location.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path (blank disables accounts)",
		Default: cfg.Database.Path,
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	cfg.Database.Path = strings.TrimSpace(dbPath)

	// 5. Log format.
	formatPrompt := promptui.Select{
		Label: "Log format",
		Items: []string{"console", "json"},
	}
	_, format, err := formatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("log format: %w", err)
	}
	cfg.Log.Format = format

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	if cfg.PublicKey == "" {
		fmt.Println("\nNote: set DISCORD_PUBLIC_KEY before starting the server; unsigned requests are rejected.")
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
