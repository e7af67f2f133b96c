package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fan-quiz-service/internal/auth"
)

// NewAccountCmd groups profile commands that need a signed-in user.
func NewAccountCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show or delete your fan account",
	}
	cmd.AddCommand(newAccountShowCmd(configPath))
	cmd.AddCommand(newAccountDeleteCmd(configPath))
	return cmd
}

func newAccountShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Sign in and print your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, *configPath, func(ctx context.Context, m *auth.Manager, out io.Writer) error {
				return showProfile(ctx, m, out)
			})
		},
	}
}

func newAccountDeleteCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account with the identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete your account? This cannot be undone. [y/N]: ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return withManager(cmd, *configPath, func(ctx context.Context, m *auth.Manager, out io.Writer) error {
				return deleteAccount(ctx, m, out)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func withManager(cmd *cobra.Command, configPath string, fn func(context.Context, *auth.Manager, io.Writer) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := quietLogger(newLogger(cfg))
	out := cmd.OutOrStdout()

	manager := auth.NewManager(newProvider(cfg, devicePrompt(out), logger), logger)
	defer manager.Close()
	return fn(cmd.Context(), manager, out)
}

func showProfile(ctx context.Context, m *auth.Manager, out io.Writer) error {
	user, err := m.SignIn(ctx)
	if err != nil {
		return errors.New(m.ErrorMessage())
	}
	fmt.Fprintf(out, "[%s] %s\n", user.Initials(), user.DisplayNameOrEmail())
	if user.Email != "" {
		fmt.Fprintln(out, user.Email)
	}
	fmt.Fprintln(out, "Real Madrid Fan")
	return nil
}

// deleteAccount signs in first; the manager re-prompts once if the provider
// still wants a fresher sign-in.
func deleteAccount(ctx context.Context, m *auth.Manager, out io.Writer) error {
	if _, err := m.SignIn(ctx); err != nil {
		return errors.New(m.ErrorMessage())
	}
	if err := m.DeleteAccount(ctx); err != nil {
		return errors.New(m.ErrorMessage())
	}
	fmt.Fprintln(out, "Account deleted.")
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
