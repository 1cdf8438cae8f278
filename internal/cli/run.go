package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opsloop/opsloop/internal/audit"
	"github.com/opsloop/opsloop/internal/config"
	"github.com/opsloop/opsloop/internal/controlplane"
	"github.com/opsloop/opsloop/internal/engine"
	"github.com/opsloop/opsloop/internal/events"
	"github.com/opsloop/opsloop/internal/orchestrator"
	"github.com/opsloop/opsloop/internal/persistence"
	"github.com/opsloop/opsloop/internal/plan"
	"github.com/opsloop/opsloop/internal/planner"
	"github.com/opsloop/opsloop/internal/policy"
)

var (
	runPlanFile    string
	runParallel    int
	runAutoApprove bool
	runNoPersist   bool
)

func init() {
	runCmd.Flags().StringVar(&runPlanFile, "plan-file", "", "Execute an explicit plan document instead of searching the plan directory")
	runCmd.Flags().IntVar(&runParallel, "parallel", 0, "Max in-flight tasks per batch (overrides config)")
	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "Grant approval-gated tasks without prompting")
	runCmd.Flags().BoolVar(&runNoPersist, "no-persist", false, "Keep the audit trail in memory only")
}

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Plan and execute a goal",
	Long: `Generate a plan for the goal, resolve it into parallel batches, and
execute every task through the policy gate and the execution engine.
Per-task failures are reported in the summary; the command only errors
on planning or structural plan defects.`,
	Args: cobra.ExactArgs(1),
	RunE: runGoal,
}

func runGoal(cmd *cobra.Command, args []string) error {
	goal := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	if runParallel > 0 {
		cfg.Orchestrator.MaxParallel = runParallel
	}

	// Audit sinks: in-memory trail always, SQLite unless disabled.
	trail := audit.NewTrail()
	recorders := audit.Multi{trail}

	var store *persistence.Store
	if !runNoPersist && cfg.Audit.DBPath != "" {
		store, err = persistence.NewStore(ctx, cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer store.Close()
		recorders = append(recorders, store)
	}
	recorder := audit.NewFailsafe(recorders)

	bus := events.NewBus()
	defer bus.Close()
	go printProgress(bus.SubscribeAll(0))

	eng := engine.New(cfg.Retry.Engine(), recorder, bus)

	// Default executor: declarative applies against the in-memory
	// control plane. Real providers register alongside "mem".
	registry := controlplane.NewRegistry()
	if err := registry.Register("mem", controlplane.NewMemory()); err != nil {
		return err
	}
	eng.RegisterDefault(controlplane.NewApplyExecutor(registry, "mem"))

	var pl planner.Planner
	if runPlanFile != "" {
		pl = singlePlan{path: runPlanFile}
	} else {
		pl = planner.NewFile(cfg.Planner.PlanDir)
	}

	orch := orchestrator.New(orchestrator.Config{MaxParallel: cfg.Orchestrator.MaxParallel},
		pl, policy.NewRuleEngine(cfg.Policy), eng, recorder, bus)

	approvals := policy.NewApprovalChannel(2*cfg.Orchestrator.MaxParallel, newApprover(runAutoApprove))
	approvals.Start(ctx)
	orch.WithApprovals(approvals)

	ec := plan.NewExecutionContext(cfg.Context.Tenant, cfg.Context.Region, cfg.Context.Env)

	result, err := orch.Run(ctx, goal, ec)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.SavePlan(ctx, result.Plan); err != nil {
			log.Printf("WARNING: failed to persist plan state: %v", err)
		}
	}

	printSummary(cmd, result)
	return nil
}

// singlePlan serves one explicit plan document regardless of goal.
type singlePlan struct {
	path string
}

func (s singlePlan) Plan(_ context.Context, goal string, _ *plan.ExecutionContext) (*plan.Plan, error) {
	p, err := planner.Load(s.path)
	if err != nil {
		return nil, err
	}
	if goal != "" {
		p.Goal = goal
	}
	return p, nil
}

// newApprover returns the ApproverFunc for approval-gated tasks: either a
// rubber stamp or an interactive stdin prompt.
func newApprover(auto bool) policy.ApproverFunc {
	if auto {
		return func(context.Context, policy.Request) (bool, error) {
			return true, nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	return func(_ context.Context, req policy.Request) (bool, error) {
		fmt.Printf("approval required for task %s (%s): %s [y/N] ", req.TaskID, req.Action, req.Reason)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func printProgress(ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case events.TaskStartedEvent:
			fmt.Printf("-> %s (%s) started\n", e.ID, e.Action)
		case events.TaskSucceededEvent:
			fmt.Printf("ok %s after %d attempt(s)\n", e.ID, e.Attempts)
		case events.TaskFailedEvent:
			fmt.Printf("FAIL %s after %d attempt(s): %v\n", e.ID, e.Attempts, e.Err)
		case events.TaskDeniedEvent:
			fmt.Printf("DENY %s: %s\n", e.ID, e.Reason)
		case events.TaskRolledBackEvent:
			if e.Err != nil {
				fmt.Printf("ROLLBACK FAILED %s: %v\n", e.ID, e.Err)
			} else {
				fmt.Printf("rolled back %s\n", e.ID)
			}
		}
	}
}

func printSummary(cmd *cobra.Command, result *orchestrator.PlanResult) {
	succeeded, failed, rolledBack, skipped := result.Counts()

	cmd.Printf("\nplan %s: %s\n", result.Plan.ID, result.Status)
	cmd.Printf("  %d succeeded, %d failed, %d rolled back, %d skipped\n",
		succeeded, failed, rolledBack, skipped)

	ids := make([]string, 0, len(result.Outcomes))
	for id := range result.Outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		out := result.Outcomes[id]
		switch {
		case out.Skipped:
			cmd.Printf("  - %s: skipped\n", id)
		case out.Err != nil:
			cmd.Printf("  - %s: %s (%v)\n", id, out.Status, out.Err)
		default:
			cmd.Printf("  - %s: %s\n", id, out.Status)
		}
	}
}
