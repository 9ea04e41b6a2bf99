package graph

import (
	"context"
)

// cypherNode is a node handle referencing a substrate node by element id.
// Properties are cached from the record the node was loaded from and kept in
// sync with writes issued through the same transaction.
type cypherNode struct {
	crud   *CypherCRUD
	id     string
	labels map[Label]bool
	props  map[string]any
}

func (n *cypherNode) ElementID() string { return n.id }

func (n *cypherNode) HasLabel(label Label) bool { return n.labels[label] }

func (n *cypherNode) Property(name string) any { return n.props[name] }

func (n *cypherNode) Properties() map[string]any { return copyProps(n.props) }

func (n *cypherNode) SetProperty(ctx context.Context, name string, value any) error {
	if value == nil {
		return n.RemoveProperty(ctx, name)
	}
	if err := setElementProperty(ctx, n.crud, "MATCH (x) WHERE elementId(x) = $id SET x += $props", n.id, name, value); err != nil {
		return err
	}
	n.props[name] = value
	return nil
}

func (n *cypherNode) RemoveProperty(ctx context.Context, name string) error {
	// Cypher removes a key when += assigns null to it.
	if err := setElementProperty(ctx, n.crud, "MATCH (x) WHERE elementId(x) = $id SET x += $props", n.id, name, nil); err != nil {
		return err
	}
	delete(n.props, name)
	return nil
}

// cypherRelationship is a relationship handle referencing a substrate
// relationship by element id.
type cypherRelationship struct {
	crud    *CypherCRUD
	id      string
	relType string
	startID string
	endID   string
	props   map[string]any
}

func (r *cypherRelationship) ElementID() string      { return r.id }
func (r *cypherRelationship) Type() string           { return r.relType }
func (r *cypherRelationship) StartElementID() string { return r.startID }
func (r *cypherRelationship) EndElementID() string   { return r.endID }

func (r *cypherRelationship) Property(name string) any { return r.props[name] }

func (r *cypherRelationship) Properties() map[string]any { return copyProps(r.props) }

func (r *cypherRelationship) SetProperty(ctx context.Context, name string, value any) error {
	if value == nil {
		return r.RemoveProperty(ctx, name)
	}
	if err := setElementProperty(ctx, r.crud, "MATCH ()-[x]->() WHERE elementId(x) = $id SET x += $props", r.id, name, value); err != nil {
		return err
	}
	r.props[name] = value
	return nil
}

func (r *cypherRelationship) RemoveProperty(ctx context.Context, name string) error {
	if err := setElementProperty(ctx, r.crud, "MATCH ()-[x]->() WHERE elementId(x) = $id SET x += $props", r.id, name, nil); err != nil {
		return err
	}
	delete(r.props, name)
	return nil
}

func setElementProperty(ctx context.Context, crud *CypherCRUD, query, elementID, name string, value any) error {
	if !validIdentifier(name) {
		return &InvalidIdentifierError{Name: name}
	}
	rows, err := crud.tx.Run(ctx, query, map[string]any{
		"id":    elementID,
		"props": map[string]any{name: value},
	})
	if err != nil {
		return err
	}
	return rows.Close(ctx)
}

// InvalidIdentifierError reports a column or label name that cannot be
// spliced into Cypher safely.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid cypher identifier " + e.Name + " (must be alphanumeric or underscore)"
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for name, value := range props {
		out[name] = value
	}
	return out
}
