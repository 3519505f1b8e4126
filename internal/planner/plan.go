package planner

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/stageplan/internal/pipeline"
	"github.com/zeebo/blake3"
)

// ExecutionPlan is the ordered list of waves handed to an executor.
type ExecutionPlan struct {
	Pipeline string `json:"pipeline"`
	// Fingerprint is "blake3:<hex>" over the canonical JSON of Waves.
	Fingerprint string `json:"fingerprint"`
	Waves       []Wave `json:"waves"`
}

// Wave is a set of actions that may run concurrently.
type Wave struct {
	Index   int             `json:"index"`
	Actions []PlannedAction `json:"actions"`
}

// PlannedAction is the executor-facing description of one action.
type PlannedAction struct {
	Name    string            `json:"actionName"`
	Stage   string            `json:"stage"`
	Kind    pipeline.Kind     `json:"kind"`
	Uses    string            `json:"uses,omitempty"`
	Inputs  []ArtifactBinding `json:"inputs"`
	Outputs []ArtifactBinding `json:"outputs"`
	Config  map[string]any    `json:"config,omitempty"`
	// Secrets holds references only. Executors resolve them at run time.
	Secrets map[string]string `json:"secrets,omitempty"`
}

// ArtifactBinding ties an artifact to its producer and storage location.
type ArtifactBinding struct {
	ID         string `json:"id"`
	ProducedBy string `json:"producedBy"`
	Location   string `json:"location"`
}

// OutputIDs returns the ids of the declared outputs.
func (a PlannedAction) OutputIDs() []string {
	ids := make([]string, 0, len(a.Outputs))
	for _, o := range a.Outputs {
		ids = append(ids, o.ID)
	}
	return ids
}

// Names returns the action names of every wave, in order.
func (p *ExecutionPlan) Names() [][]string {
	out := make([][]string, 0, len(p.Waves))
	for _, w := range p.Waves {
		names := make([]string, 0, len(w.Actions))
		for _, a := range w.Actions {
			names = append(names, a.Name)
		}
		out = append(out, names)
	}
	return out
}

// WaveOf returns the index of the wave holding the named action.
func (p *ExecutionPlan) WaveOf(action string) (int, bool) {
	for _, w := range p.Waves {
		for _, a := range w.Actions {
			if a.Name == action {
				return w.Index, true
			}
		}
	}
	return -1, false
}

// Action returns the planned action with the given name.
func (p *ExecutionPlan) Action(name string) (PlannedAction, bool) {
	for _, w := range p.Waves {
		for _, a := range w.Actions {
			if a.Name == name {
				return a, true
			}
		}
	}
	return PlannedAction{}, false
}

// ActionCount returns the number of planned actions.
func (p *ExecutionPlan) ActionCount() int {
	n := 0
	for _, w := range p.Waves {
		n += len(w.Actions)
	}
	return n
}

// JSON returns the indented, deterministic serialisation of the plan.
func (p *ExecutionPlan) JSON() ([]byte, error) {
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal execution plan: %w", err)
	}
	return body, nil
}

func fingerprint(waves []Wave) (string, error) {
	body, err := json.Marshal(waves)
	if err != nil {
		return "", fmt.Errorf("marshal plan fingerprint input: %w", err)
	}
	sum := blake3.Sum256(body)
	return "blake3:" + hex.EncodeToString(sum[:]), nil
}
