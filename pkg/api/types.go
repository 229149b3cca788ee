package api

// v0 contains public report types for programmatic callers.

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Failure is one recorded per-item failure from an orchestration run.
type Failure struct {
	Phase string `json:"phase" yaml:"phase"`
	Item  string `json:"item" yaml:"item"`
	Error string `json:"error" yaml:"error"`
}

// DrainReport is the machine-readable outcome of a drain-host run.
type DrainReport struct {
	Source               string    `json:"source" yaml:"source"`
	Target               string    `json:"target" yaml:"target"`
	Planned              int       `json:"planned" yaml:"planned"`
	Migrated             int       `json:"migrated" yaml:"migrated"`
	MaintenanceRequested bool      `json:"maintenance_requested" yaml:"maintenance_requested"`
	MaintenanceAccepted  bool      `json:"maintenance_accepted" yaml:"maintenance_accepted"`
	Drained              bool      `json:"drained" yaml:"drained"`
	AppliancesStopped    int       `json:"appliances_stopped" yaml:"appliances_stopped"`
	Failures             []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Status               RunStatus `json:"status" yaml:"status"`
}

// RebalanceReport is the machine-readable outcome of a rebalance-cluster run.
type RebalanceReport struct {
	Cluster   string    `json:"cluster" yaml:"cluster"`
	Hosts     int       `json:"hosts" yaml:"hosts"`
	Processed int       `json:"processed" yaml:"processed"`
	Moved     int       `json:"moved" yaml:"moved"`
	Failures  []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Status    RunStatus `json:"status" yaml:"status"`
}
