package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opsloop/opsloop/internal/plan"
)

// planDocument is the on-disk plan schema: the same JSON shape the
// planning layer emits.
type planDocument struct {
	Goal  string         `json:"goal"`
	Tasks []taskDocument `json:"tasks"`
}

type taskDocument struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params,omitempty"`
	Depends     []string       `json:"depends,omitempty"`
	Resources   []string       `json:"resources,omitempty"`
	FailureMode string         `json:"failure_mode,omitempty"` // "hard" (default) or "soft"
}

// File serves plans from JSON documents in a directory. Each *.json file
// holds one planDocument; goals are matched against the document's goal
// field.
type File struct {
	Dir string
}

// NewFile creates a file planner reading from dir.
func NewFile(dir string) *File {
	return &File{Dir: dir}
}

// Plan scans the directory for a document whose goal matches.
func (f *File) Plan(_ context.Context, goal string, _ *plan.ExecutionContext) (*plan.Plan, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, &PlanningError{Goal: goal, Err: fmt.Errorf("reading plan directory: %w", err)}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(f.Dir, entry.Name())
		doc, err := readDocument(path)
		if err != nil {
			return nil, &PlanningError{Goal: goal, Err: err}
		}

		if doc.Goal == goal {
			return doc.toPlan()
		}
	}

	return nil, &PlanningError{Goal: goal, Err: fmt.Errorf("no plan document matches")}
}

// Load parses a single plan document, ignoring the goal match. Used by the
// CLI when the operator points at an explicit plan file.
func Load(path string) (*plan.Plan, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, &PlanningError{Goal: "", Err: err}
	}
	return doc.toPlan()
}

func readDocument(path string) (*planDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

func (d *planDocument) toPlan() (*plan.Plan, error) {
	tasks := make([]*plan.Task, 0, len(d.Tasks))
	for _, td := range d.Tasks {
		mode := plan.FailHard
		switch td.FailureMode {
		case "", "hard":
		case "soft":
			mode = plan.FailSoft
		default:
			return nil, &PlanningError{
				Goal: d.Goal,
				Err:  fmt.Errorf("task %q has unknown failure mode %q", td.ID, td.FailureMode),
			}
		}

		tasks = append(tasks, &plan.Task{
			ID:          td.ID,
			Name:        td.Name,
			Action:      td.Action,
			Params:      td.Params,
			DependsOn:   td.Depends,
			Resources:   td.Resources,
			FailureMode: mode,
		})
	}
	return plan.New(d.Goal, tasks), nil
}
