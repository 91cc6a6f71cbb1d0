// Package taskgraph builds per-order task sequences and intra-order
// precedence sets from raw task and order records, normalising operator
// bounds and base durations by task kind.
package taskgraph

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gitrdm/linebalancer/internal/plannererr"
)

// Kind distinguishes operator-consuming tasks from verification tasks.
type Kind int

const (
	// Operative tasks consume between 1 and MaxOps operators; duration
	// shrinks as more operators are assigned.
	Operative Kind = iota
	// Verification tasks consume no operators and run for a fixed duration.
	Verification
)

func (k Kind) String() string {
	if k == Operative {
		return "OPERATIVE"
	}
	return "VERIFICATION"
}

// RawTask is one TASKS input row (spec §6.1), prior to graph resolution.
type RawTask struct {
	ParentMaterial    string
	InternalID        int
	Predecessors      string // semicolon-separated internal ids, same order
	StationID         int
	StationName       string
	Kind              Kind
	Description       string
	HoursOperator     float64
	HoursVerification float64
	OperatorsMax      int
}

// RawOrder is one ORDERS input row.
type RawOrder struct {
	Reference         string
	DueDate           time.Time
	MaterialReadyDate time.Time
}

// Task is a single resolved task within an order's local index space.
type Task struct {
	OrderRef    string
	LocalIndex  int
	TaskID      int
	StationID   int
	BaseMinutes int
	MinOps      int
	MaxOps      int
	Kind        Kind
	Description string
}

// Precedence is a (predecessor, successor) pair of local indices within one order.
type Precedence struct {
	PredecessorIndex int
	SuccessorIndex   int
}

// Order is a validated order with its due/material dates.
type Order struct {
	Reference         string
	DueDate           time.Time
	MaterialReadyDate time.Time
}

// Graph is the resolved task/order/precedence set for one scheduling session.
type Graph struct {
	Orders      []Order
	Tasks       map[string][]Task       // order ref -> tasks, local_index order
	Precedences map[string][]Precedence // order ref -> precedence pairs
}

// knownStations validates against a caller-supplied set of valid station
// ids (spec §7: unknown station_id is InvalidInput).
func Build(rawOrders []RawOrder, rawTasks []RawTask, knownStations map[int]bool) (*Graph, error) {
	byOrder := map[string][]RawTask{}
	for _, rt := range rawTasks {
		byOrder[rt.ParentMaterial] = append(byOrder[rt.ParentMaterial], rt)
	}

	orderRefs := map[string]bool{}
	for _, ro := range rawOrders {
		orderRefs[ro.Reference] = true
	}

	// Discard tasks whose order is not referenced by any Order.
	for ref := range byOrder {
		if !orderRefs[ref] {
			delete(byOrder, ref)
		}
	}

	// Discard orders not referenced by any Task.
	var orders []Order
	for _, ro := range rawOrders {
		if _, ok := byOrder[ro.Reference]; ok {
			orders = append(orders, Order{
				Reference:         ro.Reference,
				DueDate:           ro.DueDate,
				MaterialReadyDate: ro.MaterialReadyDate,
			})
		}
	}

	tasksByOrder := map[string][]Task{}
	precByOrder := map[string][]Precedence{}

	for ref, group := range byOrder {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].InternalID < group[j].InternalID
		})

		idIndex := make(map[int]int, len(group))
		tasks := make([]Task, 0, len(group))
		for i, rt := range group {
			idIndex[rt.InternalID] = i

			var baseMinutes, minOps, maxOps int
			switch rt.Kind {
			case Operative:
				if rt.OperatorsMax < 1 {
					return nil, plannererr.New(plannererr.InvalidInput,
						"order %s task %d: operators_max must be >= 1 for OPERATIVE task, got %d", ref, rt.InternalID, rt.OperatorsMax)
				}
				baseMinutes = int(math.Ceil(rt.HoursOperator * 60))
				minOps = 1
				maxOps = rt.OperatorsMax
			case Verification:
				baseMinutes = int(math.Ceil(rt.HoursVerification * 60))
				minOps = 0
				maxOps = 0
			}

			if knownStations != nil && !knownStations[rt.StationID] {
				return nil, plannererr.New(plannererr.InvalidInput,
					"order %s task %d: unknown station_id %d", ref, rt.InternalID, rt.StationID)
			}

			tasks = append(tasks, Task{
				OrderRef:    ref,
				LocalIndex:  i,
				TaskID:      rt.InternalID,
				StationID:   rt.StationID,
				BaseMinutes: baseMinutes,
				MinOps:      minOps,
				MaxOps:      maxOps,
				Kind:        rt.Kind,
				Description: rt.Description,
			})
		}

		var precs []Precedence
		for _, rt := range group {
			successorIdx := idIndex[rt.InternalID]
			preds := strings.Split(rt.Predecessors, ";")
			for _, p := range preds {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				predID, err := strconv.Atoi(p)
				if err != nil {
					return nil, plannererr.New(plannererr.InvalidInput,
						"order %s task %d: malformed predecessor id %q", ref, rt.InternalID, p)
				}
				predIdx, ok := idIndex[predID]
				if !ok {
					return nil, plannererr.New(plannererr.InvalidInput,
						"order %s task %d: predecessor %d is not a task of this order", ref, rt.InternalID, predID)
				}
				precs = append(precs, Precedence{PredecessorIndex: predIdx, SuccessorIndex: successorIdx})
			}
		}

		if err := checkAcyclic(len(tasks), precs); err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "order %s: cyclic precedence", ref)
		}

		tasksByOrder[ref] = tasks
		precByOrder[ref] = precs
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].Reference < orders[j].Reference })

	return &Graph{
		Orders:      orders,
		Tasks:       tasksByOrder,
		Precedences: precByOrder,
	}, nil
}

// checkAcyclic runs Kahn's algorithm over the order's local precedence
// graph and fails if any task is unreachable from an empty in-degree
// frontier, which indicates a cycle.
func checkAcyclic(n int, precs []Precedence) error {
	inDegree := make([]int, n)
	adj := make([][]int, n)
	for _, p := range precs {
		adj[p.PredecessorIndex] = append(adj[p.PredecessorIndex], p.SuccessorIndex)
		inDegree[p.SuccessorIndex]++
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != n {
		return fmt.Errorf("precedence graph has a cycle (%d of %d tasks reachable from roots)", visited, n)
	}
	return nil
}

// FinalIndices returns the local indices of "final" tasks for an order:
// those with no successor within the order. If that set is empty, all
// task indices are returned instead. An empty set needs every task to
// have a successor, i.e. a cycle, and Build rejects cyclic precedence,
// so for a graph Build produced every non-empty order has a final task.
// This mirrors the original solver's fallback exactly.
func (g *Graph) FinalIndices(orderRef string) []int {
	tasks := g.Tasks[orderRef]
	hasSuccessor := make(map[int]bool, len(tasks))
	for _, p := range g.Precedences[orderRef] {
		hasSuccessor[p.PredecessorIndex] = true
	}
	var final []int
	for _, t := range tasks {
		if !hasSuccessor[t.LocalIndex] {
			final = append(final, t.LocalIndex)
		}
	}
	if len(final) == 0 {
		final = make([]int, len(tasks))
		for i := range tasks {
			final[i] = i
		}
	}
	return final
}

// RootIndices returns the local indices of tasks with no predecessor
// within the order — the tasks subject to the material-release bound
// (spec §4.4 item 4).
func (g *Graph) RootIndices(orderRef string) []int {
	tasks := g.Tasks[orderRef]
	hasPredecessor := make(map[int]bool, len(tasks))
	for _, p := range g.Precedences[orderRef] {
		hasPredecessor[p.SuccessorIndex] = true
	}
	var roots []int
	for _, t := range tasks {
		if !hasPredecessor[t.LocalIndex] {
			roots = append(roots, t.LocalIndex)
		}
	}
	return roots
}
