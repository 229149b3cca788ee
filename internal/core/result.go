package core

import "fmt"

// Phase identifies the stage of an orchestration run a failure or progress
// report belongs to.
type Phase string

const (
	PhaseEnumerate   Phase = "enumerate"
	PhaseMigrate     Phase = "migrate"
	PhaseMaintenance Phase = "maintenance"
	PhaseDrainWait   Phase = "drain-wait"
	PhaseShutdown    Phase = "shutdown"
	PhaseResolve     Phase = "resolve-hosts"
	PhaseRebalance   Phase = "rebalance"
)

// Failure records one failed item without aborting the run that produced it.
type Failure struct {
	Phase Phase  `json:"phase"`
	Item  string `json:"item"`
	Err   string `json:"error"`
}

// ProgressFunc receives (done, total) after each item attempt in a phase.
// A nil ProgressFunc is valid and reports nothing.
type ProgressFunc func(phase Phase, done, total int)

// PreconditionError rejects invalid input before any collaborator call.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return "precondition: " + e.Msg }

// DrainResult is the scorecard of one host drain run. It is always complete:
// per-item failures are accumulated, never escalated.
type DrainResult struct {
	Source string `json:"source"`
	Target string `json:"target"`

	Planned  int `json:"planned"`
	Migrated int `json:"migrated"`

	MaintenanceRequested bool `json:"maintenance_requested"`
	MaintenanceAccepted  bool `json:"maintenance_accepted"`
	Drained              bool `json:"drained"`
	AppliancesStopped    int  `json:"appliances_stopped"`

	Failures []Failure `json:"failures,omitempty"`
}

func (r *DrainResult) fail(phase Phase, item string, err error) {
	r.Failures = append(r.Failures, Failure{Phase: phase, Item: item, Err: err.Error()})
}

// Summary renders a one-line human-readable outcome.
func (r *DrainResult) Summary() string {
	return fmt.Sprintf("drained %s: migrated %d/%d workloads to %s, %d appliances stopped, %d failures",
		r.Source, r.Migrated, r.Planned, r.Target, r.AppliancesStopped, len(r.Failures))
}

// RebalanceResult is the scorecard of one cluster rebalance run.
type RebalanceResult struct {
	Cluster string `json:"cluster"`

	Hosts     int `json:"hosts"`
	Processed int `json:"processed"`
	Moved     int `json:"moved"`

	Failures []Failure `json:"failures,omitempty"`
}

func (r *RebalanceResult) fail(phase Phase, item string, err error) {
	r.Failures = append(r.Failures, Failure{Phase: phase, Item: item, Err: err.Error()})
}

// Summary renders a one-line human-readable outcome.
func (r *RebalanceResult) Summary() string {
	return fmt.Sprintf("rebalanced %s: %d assignments across %d hosts, %d moved, %d failures",
		r.Cluster, r.Processed, r.Hosts, r.Moved, len(r.Failures))
}
