package adventure

import "github.com/syonosuke743/portfolio/internal/metrics"

// Outcome of a single pipeline item.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Pipeline phase names, used in reports, logs and metrics.
const (
	PhaseResolve = "resolve_waypoints"
	PhaseInject  = "inject_destination"
	PhaseRoutes  = "calculate_routes"
)

// ItemResult records what happened to one waypoint or waypoint pair.
type ItemResult struct {
	Item    string  `json:"item"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// PhaseReport lists the per-item outcomes of one pipeline phase.
type PhaseReport struct {
	Phase string       `json:"phase"`
	Items []ItemResult `json:"items"`
}

func newPhaseReport(phase string) PhaseReport {
	return PhaseReport{Phase: phase}
}

func (p *PhaseReport) record(item string, outcome Outcome, reason string) {
	p.Items = append(p.Items, ItemResult{Item: item, Outcome: outcome, Reason: reason})
	metrics.PipelineItems.WithLabelValues(p.Phase, string(outcome)).Inc()
}

// Count returns how many items ended with outcome.
func (p PhaseReport) Count(outcome Outcome) int {
	n := 0
	for _, it := range p.Items {
		if it.Outcome == outcome {
			n++
		}
	}
	return n
}
