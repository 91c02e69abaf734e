package routebuilder

import (
	"container/heap"

	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
)

// runDijkstra performs one time-expanded Dijkstra search over contacts,
// rooted at local's Registration contact, and returns the contact chain
// of the first (and therefore optimal, by the tiebreak order the heap is
// ordered with) contact reaching dest. It does not build a domain.Route;
// callers reconstruct the chain and materialize the route themselves,
// since spur search (Yen/Lawler) needs the raw chain, not a Route, to
// splice prefix and suffix paths together.
func runDijkstra(store *contactplan.Store, policy domain.Policy, work *workTable, local, dest domain.NodeID, now domain.Time) ([]domain.ContactHandle, error) {
	root, ok := store.RegistrationContact(local)
	if !ok {
		return nil, errPlanMissing("local node has no registration contact")
	}
	return runDijkstraFrom(store, policy, work, root, now, 1, 0, 0, dest)
}

// runDijkstraFrom is the shared engine behind both the root-rooted search
// (runDijkstra) and Yen/Lawler spur search, which reruns Dijkstra rooted
// at an intermediate hop with that hop's inherited arrival state.
func runDijkstraFrom(store *contactplan.Store, policy domain.Policy, work *workTable, root domain.ContactHandle, startTime domain.Time, startConfidence float64, startHops int, startOwltSum domain.Time, dest domain.NodeID) ([]domain.ContactHandle, error) {
	if _, ok := store.Contact(root); !ok {
		return nil, errNotFound("root contact not found")
	}

	rw := work.get(root)
	if rw.Suppressed {
		return nil, errNoRoute("root contact is suppressed")
	}
	rw.ArrivalTime = startTime
	rw.ArrivalConfidence = startConfidence
	rw.HopCount = startHops
	rw.OwltSum = startOwltSum
	rw.Predecessor = 0
	work.markTouched(root)

	h := &frontierHeap{neglectConfidence: policy.NeglectConfidence}
	heap.Init(h)
	heap.Push(h, frontierItem{handle: root, arrival: startTime, confidence: startConfidence, hopCount: startHops, owltSum: startOwltSum})

	var bestDest domain.ContactHandle
	found := false

	for h.Len() > 0 {
		item := heap.Pop(h).(frontierItem)
		cw := work.get(item.handle)
		if cw.Visited {
			continue
		}
		if item.arrival != cw.ArrivalTime || item.hopCount != cw.HopCount {
			continue // stale lazy-decrease-key entry
		}
		cw.Visited = true

		c, ok := store.Contact(item.handle)
		if !ok {
			continue
		}
		if c.To == dest && item.handle != root {
			bestDest = item.handle
			found = true
			break
		}

		for _, cp := range store.OutboundFrom(c.To) {
			cpw := work.get(cp)
			if cpw.Suppressed || cpw.Visited {
				continue
			}
			cpContact, ok := store.Contact(cp)
			if !ok {
				continue
			}
			if cpContact.ToTime <= item.arrival {
				continue
			}

			refTime := item.arrival
			if cpContact.FromTime > refTime {
				refTime = cpContact.FromTime
			}
			owlt, ok := store.GetApplicableRange(c.To, cpContact.To, refTime)
			if !ok {
				cpw.RangeFlag = domain.RangeAbsent
				continue
			}
			cpw.RangeFlag = domain.RangeFound
			cpw.Owlt = owlt

			margin := domain.Time(float64(owlt) * (policy.MaxSpeedMph / domain.LightSpeedMph))
			candidateArrival := refTime + owlt + margin
			if candidateArrival >= cpContact.ToTime {
				continue
			}
			candidateConfidence := item.confidence * cpContact.Confidence
			candidateHopCount := item.hopCount + 1
			candidateOwltSum := item.owltSum + owlt

			candidate := frontierItem{
				handle: cp, arrival: candidateArrival, confidence: candidateConfidence,
				hopCount: candidateHopCount, owltSum: candidateOwltSum,
			}
			if work.isTouched(cp) {
				current := frontierItem{
					handle: cp, arrival: cpw.ArrivalTime, confidence: cpw.ArrivalConfidence,
					hopCount: cpw.HopCount, owltSum: cpw.OwltSum,
				}
				if !less(candidate, current, policy.NeglectConfidence) {
					continue
				}
			}
			work.markTouched(cp)
			cpw.ArrivalTime = candidateArrival
			cpw.ArrivalConfidence = candidateConfidence
			cpw.HopCount = candidateHopCount
			cpw.OwltSum = candidateOwltSum
			cpw.Predecessor = item.handle
			heap.Push(h, candidate)
		}
	}

	if !found {
		return nil, errNoRoute("destination unreachable")
	}
	return reconstructChain(work, root, bestDest), nil
}

// reconstructChain walks predecessor links from dest back to root,
// returning the hop sequence in forward (root-exclusive) order.
func reconstructChain(work *workTable, root, dest domain.ContactHandle) []domain.ContactHandle {
	var reversed []domain.ContactHandle
	cur := dest
	for cur != root {
		reversed = append(reversed, cur)
		cur = work.get(cur).Predecessor
	}
	out := make([]domain.ContactHandle, len(reversed))
	for i, h := range reversed {
		out[len(reversed)-1-i] = h
	}
	return out
}
