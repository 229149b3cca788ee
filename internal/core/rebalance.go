package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vrelo-dev/vrelo/internal/directory"
	"github.com/vrelo-dev/vrelo/internal/topology"
)

// Rebalancer redistributes replication assignments evenly across a cluster's
// connected hosts. Like Drainer, runs are sequential and uncoordinated:
// callers must not run two rebalances (or a rebalance and a drain) against
// the same host set at once.
type Rebalancer struct {
	dir directory.Directory
	top topology.Topology

	// Progress receives per-item completion during the assignment pass.
	Progress ProgressFunc
}

// NewRebalancer creates a rebalancer over the two control planes.
func NewRebalancer(dir directory.Directory, top topology.Topology) *Rebalancer {
	return &Rebalancer{dir: dir, top: top}
}

func (r *Rebalancer) progress(phase Phase, done, total int) {
	if r.Progress != nil {
		r.Progress(phase, done, total)
	}
}

type assignment struct {
	workload directory.Workload
	host     string
}

// Rebalance walks every assignment in the cluster once and round-robins it
// onto the host sequence returned by the platform. The host sequence and the
// assignment list are both captured at the start of the run; a single cursor
// modulo the host count yields an even split (each host ends with floor(n/m)
// or ceil(n/m) assignments) without per-host bookkeeping.
//
// Host resolution failure aborts the run; everything after that is
// per-item best effort.
func (r *Rebalancer) Rebalance(ctx context.Context, cluster string) (*RebalanceResult, error) {
	if cluster == "" {
		return nil, &PreconditionError{Msg: "cluster is required"}
	}

	hosts, err := r.top.ConnectedHosts(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("resolve cluster hosts: %w", err)
	}

	res := &RebalanceResult{Cluster: cluster, Hosts: len(hosts)}
	if len(hosts) == 0 {
		return res, nil
	}

	var assignments []assignment
	for _, h := range hosts {
		workloads, err := r.dir.ListProtectedBy(ctx, h.Name)
		if err != nil {
			// The host still takes round-robin slots, it just
			// contributes no assignments of its own.
			log.Warn().Err(err).Str("host", h.Name).Msg("workload enumeration failed for host")
			res.fail(PhaseEnumerate, h.Name, err)
			continue
		}
		for _, w := range workloads {
			assignments = append(assignments, assignment{workload: w, host: h.Name})
		}
	}

	total := len(assignments)
	for i, a := range assignments {
		target := hosts[i%len(hosts)].Name
		if a.host != target {
			if err := r.dir.ReassignProtectingHost(ctx, a.workload, a.host, target); err != nil {
				log.Warn().Err(err).Str("workload", a.workload.Name).Str("target", target).Msg("reassign failed")
				res.fail(PhaseRebalance, a.workload.Name, err)
			} else {
				res.Moved++
			}
		}
		res.Processed++
		r.progress(PhaseRebalance, i+1, total)
	}

	return res, nil
}
