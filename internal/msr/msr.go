// Package msr implements Moderate Source Routing (spec.md §4.7,
// component C8): when a bundle carries its own source-routed contact
// sequence, try to adopt it directly instead of running a fresh
// Dijkstra search, falling back to the full pipeline only when the
// carried-in-band route cannot be matched against the local contact
// plan.
package msr

import (
	"cgrengine/internal/contactplan"
	"cgrengine/internal/domain"
	"cgrengine/internal/routebuilder"
)

// Result reports what BuildRoute managed to reconstruct from a bundle's
// source-routed hop list.
type Result struct {
	// Route is the reconstructed route, valid whenever Matched is true.
	Route domain.Route
	// Matched is true if at least one hop was adopted.
	Matched bool
	// Complete is true if the route's final hop terminates at the
	// bundle's destination (wise-node mode always requires this;
	// non-wise mode may return a prefix that is not yet complete).
	Complete bool
}

// BuildRoute attempts to reconstruct a route from bdl.MSRRoute starting
// at local's position in the carried hop sequence. It returns
// Matched=false if local does not appear in the sequence, or if even the
// first hop cannot be matched against the live contact plan.
func BuildRoute(store *contactplan.Store, policy domain.Policy, local domain.NodeID, bdl domain.Bundle, now domain.Time) Result {
	start := -1
	for i, hop := range bdl.MSRRoute {
		if hop.From == local {
			start = i
			break
		}
	}
	if start < 0 {
		return Result{}
	}

	var chain []domain.ContactHandle
	prevTo := local
	var lastContact domain.Contact
	matchedAny := false
	wiseComplete := false

	for i := start; i < len(bdl.MSRRoute); i++ {
		hop := bdl.MSRRoute[i]
		contactHandle, ok := findContact(store, hop.From, hop.To, hop.FromTime, policy.MSRTimeTolerance)
		if !ok {
			break
		}
		c, ok := store.Contact(contactHandle)
		if !ok || c.ToTime <= now || c.From != prevTo {
			break
		}

		chain = append(chain, contactHandle)
		prevTo = c.To
		lastContact = c
		matchedAny = true

		if policy.WiseNode && c.To == bdl.Terminus {
			wiseComplete = true
			break
		}
	}

	if !matchedAny {
		return Result{}
	}
	if policy.WiseNode {
		// Wise-node mode requires every hop to resolve and the chain to
		// terminate at the destination; a partial match is a failure.
		if !wiseComplete {
			return Result{}
		}
		return finish(store, policy, local, chain, now, true)
	}
	if len(chain) < policy.MSRHopsLowerBound {
		return Result{}
	}
	complete := lastContact.To == bdl.Terminus
	return finish(store, policy, local, chain, now, complete)
}

func finish(store *contactplan.Store, policy domain.Policy, local domain.NodeID, chain []domain.ContactHandle, now domain.Time, complete bool) Result {
	route, ok := routebuilder.Materialize(store, policy, local, chain, now)
	if !ok {
		return Result{}
	}
	return Result{Route: route, Matched: true, Complete: complete}
}

// findContact searches node's outbound contacts for one matching
// (from, to, fromTime) within ±tolerance seconds, returning the closest
// match by |fromTime difference|, mirroring get_msr_contact's tolerance
// window.
func findContact(store *contactplan.Store, from, to domain.NodeID, fromTime, tolerance domain.Time) (domain.ContactHandle, bool) {
	var best domain.ContactHandle
	bestDiff := tolerance + 1
	found := false
	for _, h := range store.OutboundFrom(from) {
		c, ok := store.Contact(h)
		if !ok || c.To != to {
			continue
		}
		diff := c.FromTime - fromTime
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance && (!found || diff < bestDiff) {
			best, bestDiff, found = h, diff, true
		}
	}
	return best, found
}
