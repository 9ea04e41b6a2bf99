package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridstore/gridstore-go/internal/grid"
)

// ErrNoQueryEngine is returned by MemoryGraph for pattern queries; only a
// real substrate can execute those.
var ErrNoQueryEngine = errors.New("memory graph has no pattern-query engine")

// MemoryGraph is an in-process implementation of the access layer API. It
// mirrors the substrate's single-writer-per-transaction semantics and exists
// for dialect tests and local experimentation; it is not safe for concurrent
// use.
type MemoryGraph struct {
	nodes     map[string]*memNode
	rels      map[string]*memRel
	nodeOrder []string
	relOrder  []string
	nextID    int
}

// NewMemoryGraph returns an empty in-memory graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes: make(map[string]*memNode),
		rels:  make(map[string]*memRel),
	}
}

type memNode struct {
	id     string
	labels map[Label]bool
	props  map[string]any
}

func (n *memNode) ElementID() string { return n.id }
func (n *memNode) HasLabel(label Label) bool { return n.labels[label] }
func (n *memNode) Property(name string) any { return n.props[name] }
func (n *memNode) Properties() map[string]any { return copyProps(n.props) }

func (n *memNode) SetProperty(_ context.Context, name string, value any) error {
	if value == nil {
		delete(n.props, name)
		return nil
	}
	n.props[name] = value
	return nil
}

func (n *memNode) RemoveProperty(_ context.Context, name string) error {
	delete(n.props, name)
	return nil
}

type memRel struct {
	id      string
	relType string
	startID string
	endID   string
	props   map[string]any
}

func (r *memRel) ElementID() string { return r.id }
func (r *memRel) Type() string { return r.relType }
func (r *memRel) StartElementID() string { return r.startID }
func (r *memRel) EndElementID() string { return r.endID }
func (r *memRel) Property(name string) any { return r.props[name] }
func (r *memRel) Properties() map[string]any { return copyProps(r.props) }

func (r *memRel) SetProperty(_ context.Context, name string, value any) error {
	if value == nil {
		delete(r.props, name)
		return nil
	}
	r.props[name] = value
	return nil
}

func (r *memRel) RemoveProperty(_ context.Context, name string) error {
	delete(r.props, name)
	return nil
}

func (g *MemoryGraph) FindNode(_ context.Context, key grid.EntityKey, label Label) (Node, error) {
	node := g.findNode(key.Metadata.Table, key.Metadata.ColumnNames, key.ColumnValues, label)
	if node == nil {
		return nil, nil
	}
	return node, nil
}

func (g *MemoryGraph) CreateNodeUnlessExists(_ context.Context, key grid.EntityKey, label Label) (Node, error) {
	if node := g.findNode(key.Metadata.Table, key.Metadata.ColumnNames, key.ColumnValues, label); node != nil {
		return node, nil
	}
	node := &memNode{
		id:     g.id("n"),
		labels: map[Label]bool{label: true, Label(key.Metadata.Table): true},
		props:  nonNullColumns(key.Metadata.ColumnNames, key.ColumnValues),
	}
	g.nodes[node.id] = node
	g.nodeOrder = append(g.nodeOrder, node.id)
	return node, nil
}

func (g *MemoryGraph) FindRowNode(_ context.Context, key grid.RowKey) (Node, error) {
	node := g.findNode(key.Table, key.ColumnNames, key.ColumnValues, "")
	if node == nil {
		return nil, nil
	}
	return node, nil
}

func (g *MemoryGraph) NodeByID(_ context.Context, elementID string) (Node, error) {
	node, ok := g.nodes[elementID]
	if !ok {
		return nil, nil
	}
	return node, nil
}

func (g *MemoryGraph) CreateRelationship(_ context.Context, startID, endID, relType string, properties map[string]any) (Relationship, error) {
	if _, ok := g.nodes[startID]; !ok {
		return nil, fmt.Errorf("relationship start node %s not found", startID)
	}
	if _, ok := g.nodes[endID]; !ok {
		return nil, fmt.Errorf("relationship end node %s not found", endID)
	}
	props := make(map[string]any, len(properties))
	for name, value := range properties {
		if value != nil {
			props[name] = value
		}
	}
	rel := &memRel{id: g.id("r"), relType: relType, startID: startID, endID: endID, props: props}
	g.rels[rel.id] = rel
	g.relOrder = append(g.relOrder, rel.id)
	return rel, nil
}

func (g *MemoryGraph) Relationships(_ context.Context, nodeID, relType string) ([]Relationship, error) {
	var out []Relationship
	for _, id := range g.relOrder {
		rel, ok := g.rels[id]
		if ok && rel.startID == nodeID && rel.relType == relType {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (g *MemoryGraph) IncomingRelationship(_ context.Context, nodeID string) (Relationship, error) {
	for _, id := range g.relOrder {
		rel, ok := g.rels[id]
		if ok && rel.endID == nodeID {
			return rel, nil
		}
	}
	return nil, nil
}

func (g *MemoryGraph) FindRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) (Relationship, error) {
	owner, err := g.FindNode(ctx, key.EntityKey, LabelEntity)
	if err != nil || owner == nil {
		return nil, err
	}
	rels, _ := g.Relationships(ctx, owner.ElementID(), RelationshipType(key))
	for _, rel := range rels {
		if matchesColumns(rel, rowKey.ColumnNames, rowKey.ColumnValues) {
			return rel, nil
		}
	}
	return nil, nil
}

func (g *MemoryGraph) RemoveEntity(ctx context.Context, key grid.EntityKey) error {
	node, err := g.FindNode(ctx, key, LabelEntity)
	if err != nil || node == nil {
		return err
	}
	return g.DetachDeleteNode(ctx, node.ElementID())
}

func (g *MemoryGraph) RemoveRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) error {
	rel, err := g.FindRelationship(ctx, key, rowKey)
	if err != nil || rel == nil {
		return err
	}
	g.deleteRel(rel.ElementID())
	return nil
}

func (g *MemoryGraph) RemoveAssociation(ctx context.Context, key grid.AssociationKey) error {
	owner, err := g.FindNode(ctx, key.EntityKey, LabelEntity)
	if err != nil || owner == nil {
		return err
	}
	rels, _ := g.Relationships(ctx, owner.ElementID(), RelationshipType(key))
	for _, rel := range rels {
		g.deleteRel(rel.ElementID())
	}
	return nil
}

func (g *MemoryGraph) DetachDeleteNode(_ context.Context, elementID string) error {
	if _, ok := g.nodes[elementID]; !ok {
		return nil
	}
	for _, id := range append([]string(nil), g.relOrder...) {
		rel, ok := g.rels[id]
		if ok && (rel.startID == elementID || rel.endID == elementID) {
			g.deleteRel(id)
		}
	}
	delete(g.nodes, elementID)
	g.nodeOrder = remove(g.nodeOrder, elementID)
	return nil
}

func (g *MemoryGraph) ExecuteQuery(context.Context, string, map[string]any) (Rows, error) {
	return nil, ErrNoQueryEngine
}

func (g *MemoryGraph) FindNodes(_ context.Context, table string) (NodeCursor, error) {
	var nodes []Node
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		if node.HasLabel(Label(table)) && node.HasLabel(LabelEntity) {
			nodes = append(nodes, node)
		}
	}
	return &MemoryNodeCursor{nodes: nodes}, nil
}

// MemoryNodeCursor iterates a snapshot of matching nodes. Closed reports
// whether the cursor was released, which resource-cleanup tests assert on.
type MemoryNodeCursor struct {
	nodes  []Node
	pos    int
	closed bool
}

func (c *MemoryNodeCursor) Next(context.Context) bool {
	if c.closed || c.pos >= len(c.nodes) {
		return false
	}
	c.pos++
	return true
}

func (c *MemoryNodeCursor) Node() Node {
	if c.pos == 0 || c.pos > len(c.nodes) {
		return nil
	}
	return c.nodes[c.pos-1]
}

func (c *MemoryNodeCursor) Err() error { return nil }

func (c *MemoryNodeCursor) Close(context.Context) error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *MemoryNodeCursor) Closed() bool { return c.closed }

// NodeCount returns the number of nodes in the graph.
func (g *MemoryGraph) NodeCount() int { return len(g.nodes) }

// RelationshipCount returns the number of relationships in the graph.
func (g *MemoryGraph) RelationshipCount() int { return len(g.rels) }

// CountLabel returns the number of nodes carrying the label.
func (g *MemoryGraph) CountLabel(label Label) int {
	count := 0
	for _, node := range g.nodes {
		if node.labels[label] {
			count++
		}
	}
	return count
}

// RelationshipsOfType returns all relationships of the given type, in
// creation order.
func (g *MemoryGraph) RelationshipsOfType(relType string) []Relationship {
	var out []Relationship
	for _, id := range g.relOrder {
		rel := g.rels[id]
		if rel.relType == relType {
			out = append(out, rel)
		}
	}
	return out
}

func (g *MemoryGraph) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s%d", prefix, g.nextID)
}

func (g *MemoryGraph) deleteRel(id string) {
	delete(g.rels, id)
	g.relOrder = remove(g.relOrder, id)
}

// findNode matches on the table label, the role label when given, and the
// key columns. A nil column value requires the property to be absent,
// mirroring the substrate's null-as-absence rule.
func (g *MemoryGraph) findNode(table string, names []string, values []any, label Label) *memNode {
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		if !node.labels[Label(table)] {
			continue
		}
		if label != "" && !node.labels[label] {
			continue
		}
		if matchesColumns(node, names, values) {
			return node
		}
	}
	return nil
}

func matchesColumns(container PropertyContainer, names []string, values []any) bool {
	for i, name := range names {
		var want any
		if i < len(values) {
			want = values[i]
		}
		if container.Property(name) != want {
			return false
		}
	}
	return true
}

func remove(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
