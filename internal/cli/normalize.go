package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/skinwise/internal/contact"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [phone]",
	Short: "Show the canonical form of a phone number",
	Args:  cobra.ExactArgs(1),
	RunE:  runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	canonical := contact.Normalize(args[0])
	if canonical == "" {
		return fmt.Errorf("%q contains no digits", args[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "canonical: %s\n", canonical)
	fmt.Fprintf(out, "local:     %s\n", contact.Local(canonical))
	fmt.Fprintf(out, "digits:    %s\n", contact.Digits(canonical))
	fmt.Fprintf(out, "valid:     %t\n", contact.Valid(canonical))
	return nil
}
