package directory

import "context"

// Workload identifies one replicated virtual machine by name.
type Workload struct {
	Name string `json:"name"`
}

// Directory is the narrow view of the replication manager the orchestrators
// need: which host protects which workload, and moving that responsibility.
type Directory interface {
	// ListProtectedBy returns the workloads whose protecting host is host.
	// An empty slice is a valid result, distinct from an error.
	ListProtectedBy(ctx context.Context, host string) ([]Workload, error)
	// ReassignProtectingHost moves a workload's replication target from
	// currentHost to newHost. One attempt, no retry.
	ReassignProtectingHost(ctx context.Context, workload Workload, currentHost, newHost string) error
}
