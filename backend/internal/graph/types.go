package graph

// Kind is a node label in the graph.
type Kind string

const (
	KindPerson Kind = "Person"
	KindCircle Kind = "Circle"
	KindEvent  Kind = "Event"
)

// Rel is a relationship type.
type Rel string

const (
	// RelKnows connects two people. Socially undirected; stored as a
	// single edge in either direction and always read direction-agnostic.
	RelKnows Rel = "KNOWS"
	// RelPartOf connects a person to a circle they belong to.
	RelPartOf Rel = "PART_OF"
	// RelInvitedTo connects a person to an event. Carries an
	// `attending` boolean edge property.
	RelInvitedTo Rel = "INVITED_TO"
	// RelScheduled connects a circle to an event it owns.
	RelScheduled Rel = "SCHEDULED"
)

// RelAny matches every relationship type in edge-delete filters.
const RelAny Rel = ""

// Direction controls how a one-hop query treats edge direction.
type Direction int

const (
	// DirectionAny matches edges regardless of stored direction.
	// Callers that care about direction must filter afterward.
	DirectionAny Direction = iota
	DirectionOut
	DirectionIn
)

// Edge describes a single typed edge between two nodes.
type Edge struct {
	SrcKind Kind
	SrcID   string
	Rel     Rel
	DstKind Kind
	DstID   string
	Props   map[string]any
}

// OneHopQuery selects all neighbors of a node reachable by exactly one
// edge of the given type.
type OneHopQuery struct {
	SrcKind   Kind
	SrcID     string
	Rel       Rel
	DstKind   Kind
	Direction Direction
}

// Neighbor is a single one-hop match: the neighbor's id plus the
// properties of the connecting edge.
type Neighbor struct {
	ID        string
	EdgeProps map[string]any
}
