package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/guard"
)

var routeCmd = &cobra.Command{
	Use:   "route [mobile]",
	Short: "Show what the onboarding page would render",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGuard(cmd, args, guard.RouteOnboarding)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [mobile]",
	Short: "Open the dashboard, if onboarding and payment are complete",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGuard(cmd, args, guard.RouteDashboard)
	},
}

func init() {
	for _, c := range []*cobra.Command{routeCmd, dashboardCmd} {
		c.Flags().Bool("json", false, "Print the decision as JSON")
	}
}

func runGuard(cmd *cobra.Command, args []string, route guard.Route) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	mobile := e.store.Contact()
	if len(args) == 1 {
		mobile = args[0]
	}
	if mobile == "" {
		return errors.New("no mobile given and none remembered; run `skinctl login` first")
	}

	g := guard.New(e.client, e.cfg.LoginRoute, e.logger)
	d := g.Resolve(commandContext(cmd), e.store, guard.Request{Mobile: mobile, Route: route})
	if guard.AdoptsContact(d, e.store.Token() != "") {
		if err := e.store.SetContact(d.Contact); err != nil {
			e.logger.Warn("remember contact", zap.Error(err))
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	printDecision(cmd.OutOrStdout(), d)
	return nil
}

func printDecision(w io.Writer, d guard.Decision) {
	fmt.Fprintf(w, "Showing: %s\n", d.Kind)
	if d.Contact != "" {
		fmt.Fprintf(w, "Contact: %s\n", d.Contact)
	}
	if d.DisplayName != "" {
		fmt.Fprintf(w, "Hello, %s\n", d.DisplayName)
	}
	if d.Step != "" && d.Kind != guard.ShowDashboard {
		fmt.Fprintf(w, "Next step: %s\n", d.Step)
	}
	if d.Message != "" {
		fmt.Fprintf(w, "Note: %s\n", d.Message)
	}
	if d.Kind == guard.ShowError {
		fmt.Fprintf(w, "You can continue with: %s\n", d.Fallback)
	}
	if d.Redirect != "" {
		fmt.Fprintf(w, "Path: %s\n", d.Redirect)
	}

	if d.Kind != guard.ShowDashboard || d.Data == nil {
		return
	}
	fmt.Fprintf(w, "\nPrescriptions: %d\n", len(d.Data.Prescriptions))
	for _, p := range d.Data.Prescriptions {
		fmt.Fprintf(w, "  - %s\n", p.Summary())
	}
	fmt.Fprintf(w, "Conversations: %d\n", len(d.Data.Conversations))
}
