package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsloop/opsloop/internal/config"
	"github.com/opsloop/opsloop/internal/persistence"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List persisted plans, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.ListPlans(cmd.Context())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			cmd.Println("no plans recorded")
			return nil
		}

		for _, sum := range summaries {
			cmd.Printf("%s  %-12s  %s  %q\n",
				sum.ID, sum.Status, sum.CreatedAt.Format("2006-01-02 15:04:05"), sum.Goal)
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <plan-id>",
	Short: "Print the audit trail of a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		evs, err := store.Events(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(evs) == 0 {
			return fmt.Errorf("no audit events for plan %s", args[0])
		}

		for _, ev := range evs {
			detail := ""
			if ev.Detail != nil {
				if data, err := json.Marshal(ev.Detail); err == nil {
					detail = string(data)
				}
			}
			task := ev.TaskID
			if task == "" {
				task = "-"
			}
			cmd.Printf("%s  %-20s  %-10s  %s\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Kind, task, detail)
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (*persistence.Store, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if cfg.Audit.DBPath == "" {
		return nil, fmt.Errorf("no audit database configured")
	}
	return persistence.NewStore(cmd.Context(), cfg.Audit.DBPath)
}
