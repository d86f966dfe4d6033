package graph

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the store operations,
// used by unit tests and local development without a Neo4j instance.
// It mirrors the Neo4j store's semantics: merge-on-SetProps, detaching
// node deletes, and direction-agnostic edge matching on request.
type MemoryStore struct {
	mu    sync.Mutex
	nodes map[Kind]map[string]map[string]any
	edges []Edge
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: map[Kind]map[string]map[string]any{},
	}
}

func (m *MemoryStore) CreateNode(_ context.Context, kind Kind, props map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	if m.nodes[kind] == nil {
		m.nodes[kind] = map[string]map[string]any{}
	}
	stored := copyProps(props)
	stored["id"] = id
	m.nodes[kind][id] = stored
	return id, nil
}

func (m *MemoryStore) MatchNode(_ context.Context, kind Kind, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props, ok := m.nodes[kind][id]
	if !ok {
		return nil, nil
	}
	return copyProps(props), nil
}

func (m *MemoryStore) MatchNodeByProp(_ context.Context, kind Kind, key string, value any) (string, map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, props := range m.nodes[kind] {
		if props[key] == value {
			return id, copyProps(props), nil
		}
	}
	return "", nil, nil
}

func (m *MemoryStore) SetProps(_ context.Context, kind Kind, id string, props map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.nodes[kind][id]
	if !ok {
		return nil
	}
	for k, v := range props {
		stored[k] = v
	}
	return nil
}

func (m *MemoryStore) CreateEdge(_ context.Context, e Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Props = copyProps(e.Props)
	m.edges = append(m.edges, e)
	return nil
}

func (m *MemoryStore) DeleteEdges(_ context.Context, kind Kind, id string, rel Rel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.edges[:0]
	for _, e := range m.edges {
		if m.edgeTouches(e, kind, id) && (rel == RelAny || e.Rel == rel) {
			continue
		}
		kept = append(kept, e)
	}
	m.edges = kept
	return nil
}

func (m *MemoryStore) DeleteNode(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nodes[kind], id)
	kept := m.edges[:0]
	for _, e := range m.edges {
		if m.edgeTouches(e, kind, id) {
			continue
		}
		kept = append(kept, e)
	}
	m.edges = kept
	return nil
}

func (m *MemoryStore) OneHop(_ context.Context, q OneHopQuery) ([]Neighbor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var neighbors []Neighbor
	for _, e := range m.edges {
		if e.Rel != q.Rel {
			continue
		}
		forward := e.SrcKind == q.SrcKind && e.SrcID == q.SrcID && e.DstKind == q.DstKind
		backward := e.DstKind == q.SrcKind && e.DstID == q.SrcID && e.SrcKind == q.DstKind
		var match bool
		var neighborID string
		switch q.Direction {
		case DirectionOut:
			match, neighborID = forward, e.DstID
		case DirectionIn:
			match, neighborID = backward, e.SrcID
		default:
			if forward {
				match, neighborID = true, e.DstID
			} else if backward {
				match, neighborID = true, e.SrcID
			}
		}
		if match {
			neighbors = append(neighbors, Neighbor{ID: neighborID, EdgeProps: copyProps(e.Props)})
		}
	}
	return neighbors, nil
}

// EdgeCount reports the number of stored edges, optionally filtered to
// those touching the given node. Test helper.
func (m *MemoryStore) EdgeCount(kind Kind, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		return len(m.edges)
	}
	n := 0
	for _, e := range m.edges {
		if m.edgeTouches(e, kind, id) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) edgeTouches(e Edge, kind Kind, id string) bool {
	return (e.SrcKind == kind && e.SrcID == id) || (e.DstKind == kind && e.DstID == id)
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
