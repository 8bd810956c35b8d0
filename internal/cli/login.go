package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/otp"
	"github.com/example/skinwise/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login [phone]",
	Short: "Log in with a WhatsApp one-time code",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	phone := e.store.Contact()
	if len(args) == 1 {
		phone = args[0]
	}

	flow := otp.NewFlow(e.client, e.store, e.cfg.OTPResendCooldown, otp.WithLogger(e.logger))
	wizard := tui.NewLogin(commandContext(cmd), flow, contact.Local(phone))

	if _, err := tea.NewProgram(wizard).Run(); err != nil {
		return fmt.Errorf("login wizard: %w", err)
	}

	outcome, canonical, ok := wizard.Outcome()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Login cancelled.")
		return nil
	}

	switch outcome {
	case otp.OutcomeExisting:
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome back. Run `skinctl dashboard %s` to open your dashboard.\n", contact.Local(canonical))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Number verified. Continue onboarding with `skinctl route %s`.\n", contact.Local(canonical))
	}
	return nil
}
