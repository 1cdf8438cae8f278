package plan

import (
	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
)

// Plan is the full set of tasks and dependency edges generated for one goal.
// Task order is significant: the batcher breaks ties by original position.
type Plan struct {
	ID     string
	Goal   string
	Tasks  []*Task
	Status Status
}

// New creates a plan for the given goal with a fresh plan ID.
func New(goal string, tasks []*Task) *Plan {
	return &Plan{
		ID:    uuid.NewString(),
		Goal:  goal,
		Tasks: tasks,
	}
}

// Task returns the task with the given ID, or false if absent.
func (p *Plan) Task(id string) (*Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// planShape is the structural projection hashed by Fingerprint.
// Execution state (status, attempts, results) is deliberately excluded so
// the fingerprint is stable across a run.
type planShape struct {
	Goal  string
	Tasks []taskShape
}

type taskShape struct {
	ID        string
	Name      string
	Action    string
	Params    map[string]any
	DependsOn []string
}

// Fingerprint returns a structural hash of the plan, recorded at plan
// creation so an audit reader can verify two runs executed the same plan.
func (p *Plan) Fingerprint() (uint64, error) {
	shape := planShape{Goal: p.Goal, Tasks: make([]taskShape, 0, len(p.Tasks))}
	for _, t := range p.Tasks {
		shape.Tasks = append(shape.Tasks, taskShape{
			ID:        t.ID,
			Name:      t.Name,
			Action:    t.Action,
			Params:    t.Params,
			DependsOn: t.DependsOn,
		})
	}
	return hashstructure.Hash(shape, hashstructure.FormatV2, nil)
}
