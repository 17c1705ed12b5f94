package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igdash/pkg/auth"
	"igdash/pkg/models"
)

// tokenCmd groups access token management commands
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the Graph API access token",
	Long: `Manage the long-lived Graph API access token.

The token is kept in the system keychain (or an encrypted file on headless
systems) and mirrored into the local store, where the sync flows read it.`,
}

// tokenSetCmd stores a new access token
var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a long-lived access token",
	Long: `Store a long-lived access token in the vault and the local store.

When no token argument is given, the token is read interactively without
echoing, so it does not end up in shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) == 1 {
			token = strings.TrimSpace(args[0])
		}
		return runTokenSet(cmd.Context(), token)
	},
}

// tokenRefreshCmd exchanges the current token for a fresh one
var tokenRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the long-lived access token",
	Long: `Exchange the current long-lived token for a fresh one.

The provider allows refreshing any token older than 24 hours; the new token
is valid for 60 days and replaces the old one in the vault and the store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenRefresh(cmd.Context())
	},
}

// tokenDeleteCmd removes the stored token
var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenDelete(cmd.Context())
	},
}

// tokenShowCmd displays the stored token, masked
var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored access token (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenShow()
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenRefreshCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
	tokenCmd.AddCommand(tokenShowCmd)
}

// promptToken reads the token from the terminal without echoing.
func promptToken() (string, error) {
	fmt.Print("Access token: ")
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runTokenSet(ctx context.Context, token string) error {
	if token == "" {
		var err error
		token, err = promptToken()
		if err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("no token provided")
	}

	vault, err := auth.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open token vault: %w", err)
	}
	if err := vault.Store(&auth.Token{AccessToken: token}); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SaveConfig(ctx, models.ConfigPatch{AccessToken: &token}); err != nil {
		return fmt.Errorf("failed to save token to store: %w", err)
	}

	fmt.Printf("Token %s stored.\n", auth.MaskToken(token))
	return nil
}

func runTokenRefresh(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	expiresAt, err := a.client.RefreshToken(ctx)
	if err != nil {
		return err
	}

	// Mirror the refreshed token back into the vault.
	cfg, err := a.store.Config(ctx)
	if err == nil && cfg != nil && cfg.AccessToken != "" {
		if vault, verr := auth.NewVault(); verr == nil {
			_ = vault.Store(&auth.Token{AccessToken: cfg.AccessToken, ExpiresAt: expiresAt})
		}
	}

	fmt.Printf("Token refreshed, valid until %s.\n", expiresAt.Format("2006-01-02"))
	return nil
}

func runTokenDelete(ctx context.Context) error {
	vault, err := auth.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open token vault: %w", err)
	}
	if err := vault.Delete(); err != nil && !errors.Is(err, auth.ErrTokenNotFound) {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	empty := ""
	if err := a.store.SaveConfig(ctx, models.ConfigPatch{AccessToken: &empty}); err != nil {
		return fmt.Errorf("failed to clear token in store: %w", err)
	}

	fmt.Println("Token removed.")
	return nil
}

func runTokenShow() error {
	vault, err := auth.NewVault()
	if err != nil {
		return fmt.Errorf("failed to open token vault: %w", err)
	}
	token, err := vault.Retrieve()
	if err != nil {
		return err
	}

	fmt.Printf("Access token: %s\n", auth.MaskToken(token.AccessToken))
	if !token.SavedAt.IsZero() {
		fmt.Printf("Saved at:     %s\n", token.SavedAt.Format("2006-01-02 15:04 MST"))
	}
	if !token.ExpiresAt.IsZero() {
		fmt.Printf("Expires at:   %s\n", token.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	return nil
}
