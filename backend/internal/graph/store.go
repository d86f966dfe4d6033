package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"circles/backend/pkg/logger"
)

// Store handles all Neo4j database operations. Ids are opaque UUID
// strings assigned at node creation; callers never see internal ids.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a new graph store.
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// CreateNode writes a new node and returns its assigned id.
func (s *Store) CreateNode(ctx context.Context, kind Kind, props map[string]any) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	id := uuid.NewString()
	query := fmt.Sprintf(`CREATE (n:%s) SET n = $props, n.id = $id RETURN n.id as id`, kind)

	result, err := session.Run(ctx, query, map[string]any{
		"props": props,
		"id":    id,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create %s node: %w", kind, err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return "", fmt.Errorf("failed to create %s node: %w", kind, err)
	}

	return id, nil
}

// MatchNode returns the properties of the node with the given id, or
// nil when no such node exists.
func (s *Store) MatchNode(ctx context.Context, kind Kind, id string) (map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(`MATCH (n:%s {id: $id}) RETURN properties(n) as props`, kind)

	result, err := session.Run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to match %s node: %w", kind, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}

	return getPropsFromRecord(result.Record(), "props"), nil
}

// MatchNodeByProp returns the id and properties of the first node of
// the given kind whose property equals value, or "" when none matches.
func (s *Store) MatchNodeByProp(ctx context.Context, kind Kind, key string, value any) (string, map[string]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(
		`MATCH (n:%s) WHERE n.%s = $value RETURN n.id as id, properties(n) as props LIMIT 1`,
		kind, key,
	)

	result, err := session.Run(ctx, query, map[string]any{"value": value})
	if err != nil {
		return "", nil, fmt.Errorf("failed to match %s node by %s: %w", kind, key, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return "", nil, nil
	}

	record := result.Record()
	return getStringFromRecord(record, "id"), getPropsFromRecord(record, "props"), nil
}

// SetProps merges the given properties onto an existing node.
func (s *Store) SetProps(ctx context.Context, kind Kind, id string, props map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf(`MATCH (n:%s {id: $id}) SET n += $props`, kind)

	_, err := session.Run(ctx, query, map[string]any{
		"id":    id,
		"props": props,
	})
	if err != nil {
		return fmt.Errorf("failed to set %s props: %w", kind, err)
	}

	return nil
}

// CreateEdge writes a single typed edge between two existing nodes.
func (s *Store) CreateEdge(ctx context.Context, e Edge) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := e.Props
	if props == nil {
		props = map[string]any{}
	}

	query := fmt.Sprintf(
		`MATCH (src:%s {id: $srcID}), (dst:%s {id: $dstID}) CREATE (src)-[r:%s]->(dst) SET r = $props`,
		e.SrcKind, e.DstKind, e.Rel,
	)

	_, err := session.Run(ctx, query, map[string]any{
		"srcID": e.SrcID,
		"dstID": e.DstID,
		"props": props,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s edge: %w", e.Rel, err)
	}

	return nil
}

// DeleteEdges removes every edge incident to the node, regardless of
// direction. A non-empty rel restricts deletion to that type.
func (s *Store) DeleteEdges(ctx context.Context, kind Kind, id string, rel Rel) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	relPart := ""
	if rel != RelAny {
		relPart = ":" + string(rel)
	}
	query := fmt.Sprintf(`MATCH (n:%s {id: $id})-[r%s]-() DELETE r`, kind, relPart)

	_, err := session.Run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete edges: %w", err)
	}

	return nil
}

// DeleteNode removes a node and any edges still attached to it.
func (s *Store) DeleteNode(ctx context.Context, kind Kind, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf(`MATCH (n:%s {id: $id}) DETACH DELETE n`, kind)

	_, err := session.Run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s node: %w", kind, err)
	}

	return nil
}

// OneHop returns the neighbors of a node reachable by exactly one edge
// of the given type, with the connecting edge's properties.
func (s *Store) OneHop(ctx context.Context, q OneHopQuery) ([]Neighbor, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	left, right := "-", "-"
	switch q.Direction {
	case DirectionOut:
		right = "->"
	case DirectionIn:
		left = "<-"
	}

	query := fmt.Sprintf(
		`MATCH (src:%s {id: $id})%s[r:%s]%s(dst:%s) RETURN dst.id as id, properties(r) as edge_props`,
		q.SrcKind, left, q.Rel, right, q.DstKind,
	)

	result, err := session.Run(ctx, query, map[string]any{"id": q.SrcID})
	if err != nil {
		return nil, fmt.Errorf("one-hop query failed: %w", err)
	}

	var neighbors []Neighbor
	for result.Next(ctx) {
		record := result.Record()
		neighbors = append(neighbors, Neighbor{
			ID:        getStringFromRecord(record, "id"),
			EdgeProps: getPropsFromRecord(record, "edge_props"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("one-hop query failed: %w", err)
	}

	return neighbors, nil
}
