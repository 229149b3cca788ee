package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/vrelo-dev/vrelo/internal/directory"
	"github.com/vrelo-dev/vrelo/internal/topology"
)

func hostSet(names ...string) []topology.Host {
	hosts := make([]topology.Host, 0, len(names))
	for _, n := range names {
		hosts = append(hosts, topology.Host{Name: n, ConnectionState: "CONNECTED"})
	}
	return hosts
}

func workloadSet(names ...string) []directory.Workload {
	ws := make([]directory.Workload, 0, len(names))
	for _, n := range names {
		ws = append(ws, directory.Workload{Name: n})
	}
	return ws
}

func TestRebalanceRoundRobin(t *testing.T) {
	fd := &fakeDirectory{workloads: map[string][]directory.Workload{
		"H1": workloadSet("A", "B", "E"),
		"H2": workloadSet("C"),
		"H3": workloadSet("D"),
	}}
	ft := &fakeTopology{hosts: hostSet("H1", "H2", "H3")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}

	// Assignment list in host order: A,B,E (H1), C (H2), D (H3).
	// Targets by cursor mod 3: H1,H2,H3,H1,H2.
	want := []reassignCall{
		{workload: "B", from: "H1", to: "H2"},
		{workload: "E", from: "H1", to: "H3"},
		{workload: "C", from: "H2", to: "H1"},
		{workload: "D", from: "H3", to: "H2"},
	}
	if !reflect.DeepEqual(fd.reassigns, want) {
		t.Errorf("reassign calls:\n got %+v\nwant %+v", fd.reassigns, want)
	}
	if res.Processed != 5 || res.Moved != 4 {
		t.Errorf("expected processed=5 moved=4, got processed=%d moved=%d", res.Processed, res.Moved)
	}
	if len(res.Failures) != 0 {
		t.Errorf("unexpected failures: %v", res.Failures)
	}
}

func TestRebalanceEvenSplit(t *testing.T) {
	fd := &fakeDirectory{workloads: map[string][]directory.Workload{
		"H1": workloadSet("w1", "w2", "w3", "w4", "w5", "w6", "w7"),
	}}
	ft := &fakeTopology{hosts: hostSet("H1", "H2", "H3")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if res.Processed != 7 {
		t.Fatalf("expected 7 processed, got %d", res.Processed)
	}

	// Every assignment ends on its cursor-designated host.
	counts := map[string]int{"H1": 0, "H2": 0, "H3": 0}
	hosts := []string{"H1", "H2", "H3"}
	for i := 0; i < 7; i++ {
		counts[hosts[i%3]]++
	}
	for a, ca := range counts {
		for b, cb := range counts {
			if diff := ca - cb; diff > 1 || diff < -1 {
				t.Errorf("uneven split: %s=%d %s=%d", a, ca, b, cb)
			}
		}
	}
}

func TestRebalanceDeterministic(t *testing.T) {
	run := func() []reassignCall {
		fd := &fakeDirectory{workloads: map[string][]directory.Workload{
			"H1": workloadSet("A", "B"),
			"H2": workloadSet("C", "D", "E"),
		}}
		ft := &fakeTopology{hosts: hostSet("H1", "H2")}
		if _, err := NewRebalancer(fd, ft).Rebalance(context.Background(), "prod"); err != nil {
			t.Fatalf("Rebalance failed: %v", err)
		}
		return fd.reassigns
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two identical runs diverged:\n%+v\n%+v", first, second)
	}
}

func TestRebalanceAlreadyBalanced(t *testing.T) {
	fd := &fakeDirectory{workloads: map[string][]directory.Workload{
		"H1": workloadSet("A"),
		"H2": workloadSet("B"),
	}}
	ft := &fakeTopology{hosts: hostSet("H1", "H2")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if len(fd.reassigns) != 0 {
		t.Errorf("expected zero reassign calls, got %v", fd.reassigns)
	}
	if res.Processed != 2 || res.Moved != 0 {
		t.Errorf("expected processed=2 moved=0, got %+v", res)
	}
}

func TestRebalanceHostResolutionFailureAborts(t *testing.T) {
	fd := &fakeDirectory{workloads: map[string][]directory.Workload{"H1": workloadSet("A")}}
	ft := &fakeTopology{hostsErr: fmt.Errorf("cluster not found")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err == nil {
		t.Fatal("expected an error")
	}
	if res != nil {
		t.Errorf("expected no result on abort, got %+v", res)
	}
	if len(fd.reassigns) != 0 {
		t.Errorf("directory called despite aborted host resolution")
	}
}

func TestRebalanceEmptyCluster(t *testing.T) {
	rb := NewRebalancer(&fakeDirectory{}, &fakeTopology{})
	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if res.Hosts != 0 || res.Processed != 0 || res.Moved != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestRebalancePreconditions(t *testing.T) {
	rb := NewRebalancer(&fakeDirectory{}, &fakeTopology{})
	var pre *PreconditionError
	if _, err := rb.Rebalance(context.Background(), ""); !errors.As(err, &pre) {
		t.Errorf("empty cluster: expected PreconditionError, got %v", err)
	}
}

func TestRebalanceHostQueryFailureKeepsSlot(t *testing.T) {
	fd := &fakeDirectory{
		workloads: map[string][]directory.Workload{
			"H1": workloadSet("A", "B"),
			"H3": workloadSet("C"),
		},
		listErr: map[string]error{"H2": fmt.Errorf("manager unreachable")},
	}
	ft := &fakeTopology{hosts: hostSet("H1", "H2", "H3")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}

	// H2 contributes no assignments but still occupies its ring slot:
	// list A,B (H1), C (H3); targets H1,H2,H3.
	want := []reassignCall{{workload: "B", from: "H1", to: "H2"}}
	if !reflect.DeepEqual(fd.reassigns, want) {
		t.Errorf("reassign calls: got %+v, want %+v", fd.reassigns, want)
	}
	if res.Processed != 3 || res.Moved != 1 {
		t.Errorf("expected processed=3 moved=1, got %+v", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Item != "H2" || res.Failures[0].Phase != PhaseEnumerate {
		t.Errorf("expected enumerate failure for H2, got %v", res.Failures)
	}
}

func TestRebalanceReassignFailureAdvancesCursor(t *testing.T) {
	fd := &fakeDirectory{
		workloads: map[string][]directory.Workload{
			"H1": workloadSet("A", "B", "C"),
		},
		reassignErr: map[string]error{"B": fmt.Errorf("rejected")},
	}
	ft := &fakeTopology{hosts: hostSet("H1", "H2")}
	rb := NewRebalancer(fd, ft)

	res, err := rb.Rebalance(context.Background(), "prod")
	if err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}

	// Targets: A->H1 (stay), B->H2 (fails), C->H1 (stay).
	if res.Processed != 3 {
		t.Errorf("cursor must advance past failures, processed=%d", res.Processed)
	}
	if res.Moved != 0 {
		t.Errorf("expected zero moves, got %d", res.Moved)
	}
	if len(res.Failures) != 1 || res.Failures[0].Item != "B" || res.Failures[0].Phase != PhaseRebalance {
		t.Errorf("expected rebalance failure for B, got %v", res.Failures)
	}
}
