package grpcadapter

import "cgrengine/internal/domain"

// The message types below are the wire shapes exchanged over the JSON
// codec (codec.go) in place of protoc-generated structs.

type ContactMsg struct {
	From       domain.NodeID     `json:"from"`
	To         domain.NodeID     `json:"to"`
	FromTime   domain.Time       `json:"fromTime"`
	ToTime     domain.Time       `json:"toTime"`
	XmitRate   float64           `json:"xmitRate"`
	Confidence float64           `json:"confidence"`
	Type       domain.ContactType `json:"type"`
}

func (m ContactMsg) toDomain() domain.Contact {
	return domain.Contact{
		From: m.From, To: m.To,
		FromTime: m.FromTime, ToTime: m.ToTime,
		XmitRate: m.XmitRate, Confidence: m.Confidence,
		Type: m.Type,
	}
}

type RangeMsg struct {
	From     domain.NodeID `json:"from"`
	To       domain.NodeID `json:"to"`
	FromTime domain.Time   `json:"fromTime"`
	ToTime   domain.Time   `json:"toTime"`
	OWLT     domain.Time   `json:"owlt"`
}

func (m RangeMsg) toDomain() domain.Range {
	return domain.Range{From: m.From, To: m.To, FromTime: m.FromTime, ToTime: m.ToTime, OWLT: m.OWLT}
}

type BundleMsg struct {
	Terminus        domain.NodeID      `json:"terminus"`
	Sender          domain.NodeID      `json:"sender"`
	Size            float64            `json:"size"`
	EVC             float64            `json:"evc"`
	Priority        domain.Priority    `json:"priority"`
	Ordinal         int                `json:"ordinal"`
	ExpirationTime  domain.Time        `json:"expirationTime"`
	DlvConfidence   float64            `json:"dlvConfidence"`
	Critical        bool               `json:"critical"`
	Fragmentable    bool               `json:"fragmentable"`
	BackwardProp    bool               `json:"backwardPropagation"`
	Probe           bool               `json:"probe"`
	FailedNeighbors []domain.NodeID    `json:"failedNeighbors,omitempty"`
	MSRRoute        []domain.SourceHop `json:"msrRoute,omitempty"`
	GeoRoute        []domain.NodeID    `json:"geoRoute,omitempty"`
}

func (m BundleMsg) toDomain() domain.Bundle {
	return domain.Bundle{
		Terminus:       m.Terminus,
		Sender:         m.Sender,
		Size:           m.Size,
		EVC:            m.EVC,
		Priority:       m.Priority,
		Ordinal:        m.Ordinal,
		ExpirationTime: m.ExpirationTime,
		DlvConfidence:  m.DlvConfidence,
		Flags: domain.BundleFlags{
			Critical:            m.Critical,
			Fragmentable:        m.Fragmentable,
			BackwardPropagation: m.BackwardProp,
			Probe:               m.Probe,
		},
		FailedNeighbors: m.FailedNeighbors,
		MSRRoute:        m.MSRRoute,
		GeoRoute:        m.GeoRoute,
	}
}

type RouteMsg struct {
	Neighbor          domain.NodeID `json:"neighbor"`
	ArrivalTime       domain.Time   `json:"arrivalTime"`
	ArrivalConfidence float64       `json:"arrivalConfidence"`
	HopCount          int           `json:"hopCount"`
}

func routeToMsg(r domain.Route) RouteMsg {
	return RouteMsg{
		Neighbor:          r.Neighbor,
		ArrivalTime:       r.ArrivalTime,
		ArrivalConfidence: r.ArrivalConfidence,
		HopCount:          len(r.Hops),
	}
}

type GetBestRoutesRequest struct {
	Now               domain.Time          `json:"now"`
	Bundle            BundleMsg            `json:"bundle"`
	ExcludedNeighbors []domain.NodeID      `json:"excludedNeighbors,omitempty"`
}

type GetBestRoutesResponse struct {
	Routes []RouteMsg `json:"routes"`
	Code   int        `json:"code"`
}

type AddContactRequest struct {
	Contact ContactMsg `json:"contact"`
}

type AddContactResponse struct {
	Handle domain.ContactHandle `json:"handle"`
	Result int                  `json:"result"`
}

type AddRangeRequest struct {
	Range RangeMsg `json:"range"`
}

type AddRangeResponse struct {
	Handle domain.RangeHandle `json:"handle"`
	Result int                `json:"result"`
}

type RemoveContactRequest struct {
	Handle domain.ContactHandle `json:"handle"`
}

type RemoveRangeRequest struct {
	Handle domain.RangeHandle `json:"handle"`
}

type ReviseContactConfidenceRequest struct {
	Handle     domain.ContactHandle `json:"handle"`
	Confidence float64              `json:"confidence"`
}

type ReviseContactXmitRateRequest struct {
	Handle   domain.ContactHandle `json:"handle"`
	XmitRate float64              `json:"xmitRate"`
}

type Empty struct{}

// QueryBacklogRequest/Response let a host process answer phase 2's ETO
// callback (bundle.BacklogQueryFunc) from across the gRPC boundary.
type QueryBacklogRequest struct {
	Neighbor domain.NodeID   `json:"neighbor"`
	Priority domain.Priority `json:"priority"`
	Ordinal  int             `json:"ordinal"`
}

type QueryBacklogResponse struct {
	ApplicableBacklog float64 `json:"applicableBacklog"`
	TotalBacklog      float64 `json:"totalBacklog"`
}
