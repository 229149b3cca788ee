package core

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vrelo-dev/vrelo/internal/directory"
	"github.com/vrelo-dev/vrelo/internal/topology"
)

// DefaultPollInterval is the pause between drain-wait queries.
const DefaultPollInterval = 10 * time.Second

// Drainer moves all replication responsibility off a host so it can be taken
// offline. Runs are strictly sequential; if two drains target overlapping
// hosts concurrently the outcome is undefined — callers must ensure only one
// drain or rebalance runs against a given host set at a time.
type Drainer struct {
	dir       directory.Directory
	top       topology.Topology
	appliance *ApplianceMatcher

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
	// Progress receives per-item completion during the migrate phase.
	Progress ProgressFunc
}

// NewDrainer creates a drainer over the two control planes.
func NewDrainer(dir directory.Directory, top topology.Topology, appliance *ApplianceMatcher) *Drainer {
	return &Drainer{dir: dir, top: top, appliance: appliance}
}

func (d *Drainer) interval() time.Duration {
	if d.PollInterval > 0 {
		return d.PollInterval
	}
	return DefaultPollInterval
}

func (d *Drainer) progress(phase Phase, done, total int) {
	if d.Progress != nil {
		d.Progress(phase, done, total)
	}
}

// Drain migrates every workload protected by source to target, then
// optionally places source into maintenance mode, waits for its non-appliance
// guests to evacuate and shuts down the replication appliances left on it.
//
// Every per-item failure is recorded in the result and the run continues;
// the returned error is non-nil only for a precondition violation or when
// ctx is cancelled during the drain wait.
func (d *Drainer) Drain(ctx context.Context, source, target string, enterMaintenance bool) (*DrainResult, error) {
	if source == "" || target == "" {
		return nil, &PreconditionError{Msg: "source and target hosts are required"}
	}
	if source == target {
		return nil, &PreconditionError{Msg: "source and target hosts must differ"}
	}

	res := &DrainResult{Source: source, Target: target}

	// The plan is captured once; workloads moved by an external actor
	// mid-run are not detected.
	plan, err := d.dir.ListProtectedBy(ctx, source)
	if err != nil {
		log.Warn().Err(err).Str("host", source).Msg("workload enumeration failed, nothing to migrate")
		res.fail(PhaseEnumerate, source, err)
	}
	res.Planned = len(plan)

	for i, w := range plan {
		if err := d.dir.ReassignProtectingHost(ctx, w, source, target); err != nil {
			log.Warn().Err(err).Str("workload", w.Name).Msg("reassign failed")
			res.fail(PhaseMigrate, w.Name, err)
		} else {
			res.Migrated++
		}
		d.progress(PhaseMigrate, i+1, len(plan))
	}

	if !enterMaintenance {
		return res, nil
	}

	res.MaintenanceRequested = true
	if err := d.top.EnterMaintenance(ctx, source); err != nil {
		log.Warn().Err(err).Str("host", source).Msg("maintenance mode request failed, skipping drain wait")
		res.fail(PhaseMaintenance, source, err)
		return res, nil
	}
	res.MaintenanceAccepted = true

	if err := d.waitForDrain(ctx, source, res); err != nil {
		return res, err
	}
	res.Drained = true

	d.shutdownAppliances(ctx, source, res)
	return res, nil
}

// waitForDrain polls the guest list on host until every VM left on it is an
// infrastructure appliance. Query failures are recorded and the loop retries;
// the only exits are an empty filtered list or ctx cancellation.
func (d *Drainer) waitForDrain(ctx context.Context, host string, res *DrainResult) error {
	ticker := time.NewTicker(d.interval())
	defer ticker.Stop()

	for {
		vms, err := d.top.GuestVMs(ctx, host)
		if err != nil {
			log.Warn().Err(err).Str("host", host).Msg("guest query failed during drain wait, retrying")
			res.fail(PhaseDrainWait, host, err)
		} else {
			remaining := 0
			for _, vm := range vms {
				if !d.appliance.Match(vm) {
					remaining++
				}
			}
			if remaining == 0 {
				return nil
			}
			log.Info().Int("remaining", remaining).Str("host", host).Msg("waiting for host to drain")
		}

		select {
		case <-ctx.Done():
			res.fail(PhaseDrainWait, host, ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// shutdownAppliances force-stops every appliance-named VM still on host.
func (d *Drainer) shutdownAppliances(ctx context.Context, host string, res *DrainResult) {
	vms, err := d.top.GuestVMs(ctx, host)
	if err != nil {
		log.Warn().Err(err).Str("host", host).Msg("guest query failed, appliances left running")
		res.fail(PhaseShutdown, host, err)
		return
	}
	for _, vm := range vms {
		if !d.appliance.Match(vm) {
			continue
		}
		if err := d.top.ShutdownGuest(ctx, vm); err != nil {
			log.Warn().Err(err).Str("vm", vm).Msg("appliance shutdown failed")
			res.fail(PhaseShutdown, vm, err)
			continue
		}
		res.AppliancesStopped++
	}
}
