package scheduler

import (
	"fmt"

	"github.com/opsloop/opsloop/internal/plan"
)

// Batch is a set of tasks whose dependencies are all satisfied by strictly
// earlier batches. Tasks within a batch are mutually independent and may
// run concurrently.
type Batch []*plan.Task

// IDs returns the task IDs in the batch, in batch order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b))
	for i, t := range b {
		ids[i] = t.ID
	}
	return ids
}

// Resolve computes the execution order for a plan as a sequence of
// parallel-eligible batches: batch k holds every task whose full dependency
// set lies in batches 0..k-1. This is Kahn's algorithm taken in waves,
// which maximizes per-batch parallelism. Ties within a batch are broken by
// original plan order, so the result is deterministic for a fixed plan.
//
// The plan is validated first; structural defects are returned unchanged.
// A plan with zero tasks resolves to zero batches.
func Resolve(p *plan.Plan) ([]Batch, error) {
	if err := plan.Validate(p); err != nil {
		return nil, err
	}

	placed := make(map[string]bool, len(p.Tasks))
	remaining := len(p.Tasks)

	var batches []Batch
	for remaining > 0 {
		var wave Batch
		for _, t := range p.Tasks {
			if placed[t.ID] {
				continue
			}
			ready := true
			for _, depID := range t.DependsOn {
				if !placed[depID] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t)
			}
		}

		// Validate guarantees acyclicity, so every iteration frees at
		// least one task.
		if len(wave) == 0 {
			return nil, fmt.Errorf("no runnable tasks among %d remaining", remaining)
		}

		for _, t := range wave {
			placed[t.ID] = true
		}
		remaining -= len(wave)
		batches = append(batches, wave)
	}

	return batches, nil
}
