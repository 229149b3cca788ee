package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	core "github.com/vrelo-dev/vrelo/internal/core"
	dir "github.com/vrelo-dev/vrelo/internal/directory"
	"github.com/vrelo-dev/vrelo/internal/telemetry"
	top "github.com/vrelo-dev/vrelo/internal/topology"
	"github.com/vrelo-dev/vrelo/pkg/api"
)

// stack bundles everything a command needs against the two control planes.
type stack struct {
	cfg       core.Config
	directory *dir.Client
	topology  *top.Client
	appliance *core.ApplianceMatcher
}

// Resolve config and control-plane clients
func resolveStack(cmd *cobra.Command) (*stack, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := core.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if ep, _ := cmd.Flags().GetString("replication-endpoint"); ep != "" {
		cfg.Replication.Endpoint = ep
	}
	if ep, _ := cmd.Flags().GetString("platform-endpoint"); ep != "" {
		cfg.Platform.Endpoint = ep
	}
	if cfg.Replication.Endpoint == "" {
		return nil, fmt.Errorf("replication endpoint not configured")
	}
	if cfg.Platform.Endpoint == "" {
		return nil, fmt.Errorf("platform endpoint not configured")
	}

	matcher, err := core.NewApplianceMatcher(cfg.Replication.AppliancePattern)
	if err != nil {
		return nil, err
	}

	telemetry.InitGlobal(cfg.Telemetry.Enabled)

	return &stack{
		cfg:       cfg,
		directory: dir.NewClient(cfg.Replication.Endpoint, cfg.Replication.Username, cfg.Replication.Password, cfg.Timeout()),
		topology:  top.NewClient(cfg.Platform.Endpoint, cfg.Platform.Username, cfg.Platform.Password, cfg.Timeout()),
		appliance: matcher,
	}, nil
}

func registerEndpointFlags(cmd *cobra.Command) {
	cmd.Flags().String("replication-endpoint", "", "replication manager endpoint (overrides config)")
	cmd.Flags().String("platform-endpoint", "", "virtualization platform endpoint (overrides config)")
}

// printProgress emits one line per attempted item.
func printProgress(phase core.Phase, done, total int) {
	if total == 0 {
		return
	}
	fmt.Printf("%s %d/%d (%d%%)\n", phase, done, total, done*100/total)
}

// journalRun appends a run record best-effort.
func journalRun(cmd *cobra.Command, cfg core.Config, rec core.RunRecord) {
	j, err := core.OpenJournal(cfg.Journal.Path)
	if err != nil {
		log.Warn().Err(err).Msg("journal unavailable, run not recorded")
		return
	}
	defer j.Close()
	if err := j.Record(cmd.Context(), rec); err != nil {
		log.Warn().Err(err).Msg("journal write failed")
	}
}

func runStatus(failures int) api.RunStatus {
	if failures > 0 {
		return api.RunPartial
	}
	return api.RunSucceeded
}

func apiFailures(failures []core.Failure) []api.Failure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]api.Failure, 0, len(failures))
	for _, f := range failures {
		out = append(out, api.Failure{Phase: string(f.Phase), Item: f.Item, Error: f.Err})
	}
	return out
}

func emitReport(cmd *cobra.Command, report any, summary string, failures []core.Failure) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Println(summary)
	for _, f := range failures {
		fmt.Printf("  failed [%s] %s: %s\n", f.Phase, f.Item, f.Err)
	}
	return nil
}

// Drain a host of replication responsibility
func newDrainHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drain-host",
		Short: "Migrate all workloads protected by a host to another host",
		Long: "Migrates every replicated workload whose protecting host is --source onto --target. " +
			"With --maintenance the source host is placed into maintenance mode, the command waits " +
			"until only replication appliances remain on it, then shuts those appliances down. " +
			"Only one drain or rebalance should run against a given host set at a time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			target, _ := cmd.Flags().GetString("target")
			maintenance, _ := cmd.Flags().GetBool("maintenance")

			st, err := resolveStack(cmd)
			if err != nil {
				return err
			}
			defer telemetry.Shutdown()

			drainer := core.NewDrainer(st.directory, st.topology, st.appliance)
			drainer.PollInterval = st.cfg.PollInterval()
			drainer.Progress = printProgress

			started := time.Now()
			res, err := drainer.Drain(cmd.Context(), source, target, maintenance)
			if err != nil && res == nil {
				return err
			}
			telemetry.CounterGlobal("vrelo_workloads_migrated", float64(res.Migrated))
			telemetry.CounterGlobal("vrelo_failures", float64(len(res.Failures)))
			telemetry.TimerGlobal("vrelo_drain_duration", time.Since(started))

			status := runStatus(len(res.Failures))
			if err != nil {
				status = api.RunFailed
			}
			journalRun(cmd, st.cfg, core.RunRecord{
				Kind:       "drain-host",
				Subject:    fmt.Sprintf("%s -> %s", source, target),
				Processed:  res.Planned,
				Moved:      res.Migrated,
				Failures:   len(res.Failures),
				Status:     string(status),
				StartedAt:  started,
				FinishedAt: time.Now(),
			})

			report := api.DrainReport{
				Source:               res.Source,
				Target:               res.Target,
				Planned:              res.Planned,
				Migrated:             res.Migrated,
				MaintenanceRequested: res.MaintenanceRequested,
				MaintenanceAccepted:  res.MaintenanceAccepted,
				Drained:              res.Drained,
				AppliancesStopped:    res.AppliancesStopped,
				Failures:             apiFailures(res.Failures),
				Status:               status,
			}
			if emitErr := emitReport(cmd, report, res.Summary(), res.Failures); emitErr != nil {
				return emitErr
			}
			return err
		},
	}
	cmd.Flags().String("source", "", "host to drain")
	cmd.Flags().String("target", "", "host to take over the workloads")
	cmd.Flags().Bool("maintenance", false, "place the source host into maintenance mode and wait for it to drain")
	registerEndpointFlags(cmd)
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// Rebalance replication load across a cluster
func newRebalanceClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance-cluster",
		Short: "Redistribute replication load evenly across a cluster's hosts",
		Long: "Collects every replication assignment in the cluster and round-robins it across the " +
			"connected hosts in platform order. Already-balanced assignments are left untouched. " +
			"Only one drain or rebalance should run against a given host set at a time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, _ := cmd.Flags().GetString("cluster")

			st, err := resolveStack(cmd)
			if err != nil {
				return err
			}
			defer telemetry.Shutdown()

			rebalancer := core.NewRebalancer(st.directory, st.topology)
			rebalancer.Progress = printProgress

			started := time.Now()
			res, err := rebalancer.Rebalance(cmd.Context(), cluster)
			if err != nil {
				journalRun(cmd, st.cfg, core.RunRecord{
					Kind:       "rebalance-cluster",
					Subject:    cluster,
					Status:     string(api.RunFailed),
					StartedAt:  started,
					FinishedAt: time.Now(),
				})
				return err
			}
			telemetry.CounterGlobal("vrelo_workloads_moved", float64(res.Moved))
			telemetry.CounterGlobal("vrelo_failures", float64(len(res.Failures)))
			telemetry.TimerGlobal("vrelo_rebalance_duration", time.Since(started))

			status := runStatus(len(res.Failures))
			journalRun(cmd, st.cfg, core.RunRecord{
				Kind:       "rebalance-cluster",
				Subject:    cluster,
				Processed:  res.Processed,
				Moved:      res.Moved,
				Failures:   len(res.Failures),
				Status:     string(status),
				StartedAt:  started,
				FinishedAt: time.Now(),
			})

			report := api.RebalanceReport{
				Cluster:   res.Cluster,
				Hosts:     res.Hosts,
				Processed: res.Processed,
				Moved:     res.Moved,
				Failures:  apiFailures(res.Failures),
				Status:    status,
			}
			return emitReport(cmd, report, res.Summary(), res.Failures)
		},
	}
	cmd.Flags().String("cluster", "", "cluster whose hosts receive the rebalanced load")
	registerEndpointFlags(cmd)
	_ = cmd.MarkFlagRequired("cluster")
	return cmd
}

// List recent runs from the journal
func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent drain and rebalance runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := core.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			j, err := core.OpenJournal(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%d\t%s\t%s\t%s\tprocessed=%d moved=%d failures=%d\t%s\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Kind, r.Subject,
					r.Processed, r.Moved, r.Failures, r.Status)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	return cmd
}
