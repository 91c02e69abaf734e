package domain

// AvoidLoopMode selects how the engine guards against routing loops in
// phase 2 (spec.md §4.5).
type AvoidLoopMode int

const (
	AvoidLoopOff AvoidLoopMode = iota
	AvoidLoopReactive
	AvoidLoopProactive
	AvoidLoopBoth
)

// QueueDelayMode selects how much of a route's hop chain contributes to
// the queue-delay estimate in phase 2 (spec.md §4.5 step 3).
type QueueDelayMode int

const (
	QueueDelayFirstHopOnly QueueDelayMode = iota
	QueueDelayAllHops
)

// PolicyPreset names one of the three mutually exclusive configuration
// bundles spec.md §6 requires.
type PolicyPreset int

const (
	PresetNone PolicyPreset = iota
	PresetCCSDSSABR
	PresetION370
	PresetUniboSuggested
)

func (p PolicyPreset) String() string {
	switch p {
	case PresetCCSDSSABR:
		return "ccsds-sabr"
	case PresetION370:
		return "ion-3.7.0"
	case PresetUniboSuggested:
		return "unibo-suggested"
	default:
		return "none"
	}
}

// Policy bundles the compile-time/init-time constants spec.md §6 requires
// as a single struct, threaded through the orchestrator and every phase.
type Policy struct {
	AvoidLoop                       AvoidLoopMode
	MaxDijkstraRoutes                int
	QueueDelay                       QueueDelayMode
	NeglectConfidence                bool
	AddComputedRouteToIntermediates  bool
	MinConfidenceImprovement         float64
	PercConvergenceLayerOverhead     float64
	MinConvergenceLayerOverhead      float64
	MSREnabled                       bool
	MSRTimeTolerance                 Time
	WiseNode                         bool
	MSRHopsLowerBound                int
	MaxSpeedMph                      float64
}

// DefaultPolicy returns the Unibo-suggested preset, spec.md §6's default
// column.
func DefaultPolicy() Policy {
	var p Policy
	p.ApplyPreset(PresetUniboSuggested)
	return p
}

// ApplyPreset seeds p with one of the three named presets. Values not
// covered by the preset (MSR settings, MaxSpeedMph) keep CCSDS SABR §2.4.2
// values across all three, matching the original ION/Unibo source.
func (p *Policy) ApplyPreset(preset PolicyPreset) {
	p.MSREnabled = false
	p.MSRTimeTolerance = 2
	p.WiseNode = true
	p.MSRHopsLowerBound = 1
	p.MaxSpeedMph = 450000

	switch preset {
	case PresetCCSDSSABR:
		p.AvoidLoop = AvoidLoopOff
		p.QueueDelay = QueueDelayFirstHopOnly
		p.MaxDijkstraRoutes = 1
		p.AddComputedRouteToIntermediates = false
		p.NeglectConfidence = true
		p.MinConfidenceImprovement = 0.05
		p.PercConvergenceLayerOverhead = 3.0
		p.MinConvergenceLayerOverhead = 100
	case PresetION370:
		p.AvoidLoop = AvoidLoopOff
		p.QueueDelay = QueueDelayFirstHopOnly
		p.MaxDijkstraRoutes = 1
		p.AddComputedRouteToIntermediates = false
		p.NeglectConfidence = false
		p.MinConfidenceImprovement = 0.05
		p.PercConvergenceLayerOverhead = 6.25
		p.MinConvergenceLayerOverhead = 36
	case PresetUniboSuggested, PresetNone:
		p.AvoidLoop = AvoidLoopBoth
		p.QueueDelay = QueueDelayAllHops
		p.MaxDijkstraRoutes = 0
		p.AddComputedRouteToIntermediates = false
		p.NeglectConfidence = false
		p.MinConfidenceImprovement = 0.05
		p.PercConvergenceLayerOverhead = 6.25
		p.MinConvergenceLayerOverhead = 100
	}
}
