package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xyntoro/xyntoro/internal/config"
	"github.com/xyntoro/xyntoro/internal/service"
	"github.com/xyntoro/xyntoro/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long: `Create, reset and list the accounts that can sign in to the admin
endpoints. There is no registration endpoint; accounts exist only through
these commands.`,
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminTokenCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account or reset its password",
		Example: `  xyntoro admin create --username admin --password 'correct horse'
  xyntoro admin create --username admin  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := promptPassword(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				password = p
			}
			return runAdminCreate(cmd.Context(), cmd.OutOrStdout(), username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to prompt on; pass --password")
	}

	fmt.Fprint(out, "Password: ")
	pwBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(out)

	fmt.Fprint(out, "Confirm password: ")
	confirmBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(out)

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

func runAdminCreate(ctx context.Context, out io.Writer, username, password string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return provisionAdmin(ctx, out, cfg, username, password)
}

func provisionAdmin(ctx context.Context, out io.Writer, cfg *config.Config, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return service.ErrInvalidUsername
	}
	if len(password) < service.MinPasswordLength {
		return service.ErrWeakPassword
	}

	st, db, err := connectStore(ctx, cfg, newLogger(cfg.Log, false))
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := newAuthService(cfg.Auth, st).ProvisionAdmin(ctx, username, password)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "Created admin user %q\n", username)
	} else {
		fmt.Fprintf(out, "Reset password for admin user %q\n", username)
	}
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runAdminList(cmd.Context(), cmd.OutOrStdout(), cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, out io.Writer, cfg *config.Config, jsonOutput bool) error {
	st, db, err := connectStore(ctx, cfg, newLogger(cfg.Log, false))
	if err != nil {
		return err
	}
	defer db.Close()

	admins, err := st.ListAdmins(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admin users configured. Use 'xyntoro admin create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-24s %-20s %-20s\n", "USERNAME", "CREATED", "UPDATED")
	fmt.Fprintf(out, "%-24s %-20s %-20s\n", "--------", "-------", "-------")
	for _, a := range admins {
		fmt.Fprintf(out, "%-24s %-20s %-20s\n", a.Username,
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
			a.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	return nil
}

// ---------- admin token ----------

func newAdminTokenCmd() *cobra.Command {
	var (
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the MCP HTTP endpoint",
		Long: `Print a signed token for an existing admin account. Send it as
"Authorization: Bearer <token>" to 'xyntoro mcp --transport http'. The token is
valid until it expires; rotating auth.jwt_secret revokes all tokens.`,
		Example: `  xyntoro admin token --username admin
  xyntoro admin token --username admin --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.Auth.TokenTTL = ttl
			}
			return runAdminToken(cmd.Context(), cmd.OutOrStdout(), cfg, username)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runAdminToken(ctx context.Context, out io.Writer, cfg *config.Config, username string) error {
	if cfg.Auth.JWTSecret == "" {
		return config.ErrMissingJWTSecret
	}

	st, db, err := connectStore(ctx, cfg, newLogger(cfg.Log, false))
	if err != nil {
		return err
	}
	defer db.Close()

	admin, err := st.GetAdmin(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no admin user %q", username)
	}
	if err != nil {
		return err
	}

	token, _, err := service.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(admin.Username)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
