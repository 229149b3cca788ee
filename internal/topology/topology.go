package topology

import "context"

// Host is one virtualization-platform host as the platform reports it.
type Host struct {
	Name            string `json:"name"`
	ConnectionState string `json:"connection_state"`
}

// Topology is the narrow view of the virtualization platform the
// orchestrators need.
type Topology interface {
	// ConnectedHosts returns the connected hosts of a cluster in the order
	// the platform reports them. Order is significant to callers.
	ConnectedHosts(ctx context.Context, cluster string) ([]Host, error)
	// GuestVMs returns the names of the guest VMs currently on host.
	GuestVMs(ctx context.Context, host string) ([]string, error)
	// EnterMaintenance asks the platform to move host into maintenance mode.
	// Acceptance is asynchronous and does not imply the host has drained.
	EnterMaintenance(ctx context.Context, host string) error
	// ShutdownGuest force-stops a guest VM, without confirmation.
	ShutdownGuest(ctx context.Context, vm string) error
}
