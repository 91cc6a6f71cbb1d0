package taskgraph

import (
	"testing"
	"time"

	"github.com/gitrdm/linebalancer/internal/plannererr"
)

func TestBuildBasic(t *testing.T) {
	orders := []RawOrder{
		{Reference: "A", DueDate: time.Now(), MaterialReadyDate: time.Now()},
	}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 2, OperatorsMax: 2},
		{ParentMaterial: "A", InternalID: 2, Predecessors: "1", StationID: 1, Kind: Verification, HoursVerification: 0.5},
	}
	g, err := Build(orders, tasks, map[int]bool{1: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Tasks["A"]) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(g.Tasks["A"]))
	}
	if g.Tasks["A"][0].BaseMinutes != 120 {
		t.Fatalf("expected base_minutes=120, got %d", g.Tasks["A"][0].BaseMinutes)
	}
	if len(g.Precedences["A"]) != 1 {
		t.Fatalf("expected 1 precedence, got %d", len(g.Precedences["A"]))
	}
}

func TestBuildDiscardsUnreferencedOrdersAndTasks(t *testing.T) {
	orders := []RawOrder{
		{Reference: "A"},
		{Reference: "B"}, // no tasks reference B
	}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "C", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1}, // no order C
	}
	g, err := Build(orders, tasks, map[int]bool{1: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Orders) != 1 || g.Orders[0].Reference != "A" {
		t.Fatalf("expected only order A to survive, got %+v", g.Orders)
	}
	if _, ok := g.Tasks["C"]; ok {
		t.Fatalf("expected order C's tasks to be discarded")
	}
}

func TestBuildRejectsOperativeWithoutOperators(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 0},
	}
	_, err := Build(orders, tasks, map[int]bool{1: true})
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestBuildRejectsUnknownStation(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 99, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	_, err := Build(orders, tasks, map[int]bool{1: true})
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestBuildRejectsUnreferencedPredecessor(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, Predecessors: "99", StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	_, err := Build(orders, tasks, map[int]bool{1: true})
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestBuildRejectsCyclicPrecedence(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, Predecessors: "2", StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "A", InternalID: 2, Predecessors: "1", StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	_, err := Build(orders, tasks, map[int]bool{1: true})
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestFinalIndicesWithoutPrecedences(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "A", InternalID: 2, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	g, err := Build(orders, tasks, map[int]bool{1: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := g.FinalIndices("A")
	if len(final) != 2 {
		t.Fatalf("expected both tasks to be final, got %d", len(final))
	}
}

func TestFinalIndicesWithSuccessors(t *testing.T) {
	orders := []RawOrder{{Reference: "A"}}
	tasks := []RawTask{
		{ParentMaterial: "A", InternalID: 1, StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
		{ParentMaterial: "A", InternalID: 2, Predecessors: "1", StationID: 1, Kind: Operative, HoursOperator: 1, OperatorsMax: 1},
	}
	g, err := Build(orders, tasks, map[int]bool{1: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := g.FinalIndices("A")
	if len(final) != 1 || final[0] != 1 {
		t.Fatalf("expected final=[1], got %v", final)
	}
	roots := g.RootIndices("A")
	if len(roots) != 1 || roots[0] != 0 {
		t.Fatalf("expected roots=[0], got %v", roots)
	}
}
