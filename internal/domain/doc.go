// Package domain holds the CGR engine's core value types: the contact
// plan's Contact and Range, the per-call Dijkstra scratch RoutingWork, the
// computed Route, the Bundle view the orchestrator forwards, and the
// routing Policy the three CCSDS/ION/Unibo presets configure.
//
// Types here are deliberately free of any storage or algorithm behavior;
// internal/contactplan, internal/routebuilder, internal/candidate,
// internal/chooser and internal/msr hold the logic that operates on them.
package domain
