package graph

import (
	"context"

	"github.com/gridstore/gridstore-go/internal/grid"
)

// API is the contract of the graph access layer as consumed by the dialect:
// key-addressed lookups and idempotent creation, relationship resolution,
// pattern-query execution, and per-table scans. Not-found lookups return nil
// results, not errors. CypherCRUD implements it against a live substrate
// transaction; MemoryGraph implements it in process.
type API interface {
	// FindNode returns the node carrying the given label whose properties
	// match every key column, nil when absent.
	FindNode(ctx context.Context, key grid.EntityKey, label Label) (Node, error)

	// CreateNodeUnlessExists returns the matching node if one exists,
	// otherwise creates it with the label and the key columns as properties.
	CreateNodeUnlessExists(ctx context.Context, key grid.EntityKey, label Label) (Node, error)

	// FindRowNode returns the node of the row key's table matching its
	// columns, whether it is an entity or a staging node. Nil when absent.
	FindRowNode(ctx context.Context, key grid.RowKey) (Node, error)

	// NodeByID returns the node with the given element id, nil when absent.
	NodeByID(ctx context.Context, elementID string) (Node, error)

	// CreateRelationship creates a typed relationship between two nodes,
	// stamped with the given properties (nil values are skipped).
	CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) (Relationship, error)

	// Relationships returns the outgoing relationships of the given type.
	Relationships(ctx context.Context, nodeID, relType string) ([]Relationship, error)

	// IncomingRelationship returns the single incoming relationship of a
	// node, nil when it has none.
	IncomingRelationship(ctx context.Context, nodeID string) (Relationship, error)

	// FindRelationship returns the relationship between the association's
	// owner and the row identified by the row key, nil when absent.
	FindRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) (Relationship, error)

	// RemoveEntity deletes the entity node and all its relationships.
	RemoveEntity(ctx context.Context, key grid.EntityKey) error

	// RemoveRelationship deletes the one relationship representing a row.
	RemoveRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) error

	// RemoveAssociation deletes every relationship of the association.
	RemoveAssociation(ctx context.Context, key grid.AssociationKey) error

	// DetachDeleteNode deletes a node together with its relationships.
	DetachDeleteNode(ctx context.Context, elementID string) error

	// ExecuteQuery runs a pattern query and returns its row cursor.
	ExecuteQuery(ctx context.Context, query string, params map[string]any) (Rows, error)

	// FindNodes returns a cursor over all entity nodes of a table.
	FindNodes(ctx context.Context, table string) (NodeCursor, error)
}

// RelationshipType derives the relationship type for an association. It is a
// pure function of the collection role.
func RelationshipType(key grid.AssociationKey) string {
	return key.CollectionRole
}
