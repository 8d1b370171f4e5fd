package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/watchx/internal/shared"
)

// APIKeySet stores the movie database API key on this device.
//
// Without an argument the key is read from an interactive terminal with echo off.
func (r *Runner) APIKeySet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		var err error
		if key, err = r.promptSecret("API key: "); err != nil {
			return err
		}
	}

	if err := r.apiKeys.Set(key); err != nil {
		return err
	}
	masked, _ := r.apiKeys.Masked()
	return r.writePlain("✓ API key saved (%s)\n", masked)
}

func (r *Runner) APIKeyShow(ctx context.Context, cmd *cli.Command) error {
	var (
		key string
		err error
	)
	if cmd.Bool("reveal") {
		key, err = r.apiKeys.Get()
	} else {
		key, err = r.apiKeys.Masked()
	}
	if err != nil {
		return err
	}

	if key == "" {
		return r.writePlain("No API key set. Add one with: watchx config api-key set <key>\n")
	}
	return r.writePlain("%s\n", key)
}

func (r *Runner) APIKeyClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.apiKeys.Clear(); err != nil {
		return fmt.Errorf("failed to clear api key: %w", err)
	}
	return r.writePlain("✓ API key removed\n")
}

func (r *Runner) promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: expected <key>", shared.ErrMissingArgument)
	}

	r.writePlain("%s", label)
	secret, err := term.ReadPassword(fd)
	r.writePlain("\n")
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return string(secret), nil
}
