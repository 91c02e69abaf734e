package routebuilder

import "cgrengine/internal/domain"

// frontierItem is one entry in the Dijkstra min-heap: a snapshot of the
// tentative arrival state for a contact at push time. The heap uses a
// lazy-decrease-key discipline the same way the pack's graph library
// does (push a fresh, better entry rather than mutate one already in the
// heap; stale entries are dropped on pop by comparing against the
// contact's current RoutingWork).
type frontierItem struct {
	handle     domain.ContactHandle
	arrival    domain.Time
	confidence float64
	hopCount   int
	owltSum    domain.Time
}

// less implements the tiebreak order spec.md §4.4 step 6 defines for
// improving a candidate contact's best known path: earliest arrival,
// then (unless confidence is neglected) higher confidence, then fewer
// hops, then lower owltSum.
func less(a, b frontierItem, neglectConfidence bool) bool {
	if a.arrival != b.arrival {
		return a.arrival < b.arrival
	}
	if !neglectConfidence && a.confidence != b.confidence {
		return a.confidence > b.confidence
	}
	if a.hopCount != b.hopCount {
		return a.hopCount < b.hopCount
	}
	return a.owltSum < b.owltSum
}

type frontierHeap struct {
	items             []frontierItem
	neglectConfidence bool
}

func (h *frontierHeap) Len() int { return len(h.items) }
func (h *frontierHeap) Less(i, j int) bool {
	return less(h.items[i], h.items[j], h.neglectConfidence)
}
func (h *frontierHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *frontierHeap) Push(x any)    { h.items = append(h.items, x.(frontierItem)) }
func (h *frontierHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
