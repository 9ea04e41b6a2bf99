// Package dialect implements the grid dialect for the Neo4j backend: tuples
// map to ENTITY-labeled nodes, associations to typed relationships named
// after the collection role, and null column values to absent properties.
package dialect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
	"github.com/gridstore/gridstore-go/internal/sequence"
)

// ErrInconsistentGraph reports graph state the dialect cannot have produced:
// an association row node carrying neither the ENTITY nor the TEMP_NODE
// label, or a staging node without its incoming relationship. Not
// recoverable.
var ErrInconsistentGraph = errors.New("inconsistent graph state")

// Neo4j implements grid.Dialect against the graph substrate. It holds no
// per-transaction state: every operation receives the ambient transaction
// handle and resolves the access layer from it.
type Neo4j struct {
	sequences sequence.Source
	logger    *slog.Logger
}

// Option configures the dialect.
type Option func(*Neo4j)

// WithSequenceSource overrides the sequence source (default: graph-backed
// SEQUENCE nodes).
func WithSequenceSource(source sequence.Source) Option {
	return func(d *Neo4j) { d.sequences = source }
}

// NewNeo4j builds the dialect.
func NewNeo4j(opts ...Option) *Neo4j {
	d := &Neo4j{
		sequences: sequence.NewGraphSource(),
		logger:    slog.Default().With("component", "dialect"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// api resolves the graph access layer from the ambient transaction handle.
// A handle already implementing the access API (the in-memory substrate) is
// used directly; a Cypher-capable transaction gets the Cypher binding.
func (d *Neo4j) api(tx grid.Tx) (graph.API, error) {
	switch v := tx.(type) {
	case graph.API:
		return v, nil
	case graph.Tx:
		return graph.NewCypherCRUD(v), nil
	case graph.Runner:
		return graph.NewCypherCRUD(graph.WrapTransaction(v)), nil
	default:
		return nil, fmt.Errorf("unsupported transaction handle %T", tx)
	}
}

// LockingStrategy always fails: the graph backend offers no lock modes, and
// locking is the framework's concern.
func (d *Neo4j) LockingStrategy(mode grid.LockMode) error {
	return grid.UnsupportedLockModeError(mode)
}

func (d *Neo4j) GetTuple(ctx context.Context, tx grid.Tx, key grid.EntityKey, _ grid.TupleContext) (*grid.Tuple, error) {
	api, err := d.api(tx)
	if err != nil {
		return nil, err
	}
	node, err := api.FindNode(ctx, key, graph.LabelEntity)
	if err != nil || node == nil {
		return nil, err
	}
	return grid.NewTuple(NewContainerSnapshot(node)), nil
}

func (d *Neo4j) CreateTuple(ctx context.Context, tx grid.Tx, key grid.EntityKey, _ grid.TupleContext) (*grid.Tuple, error) {
	api, err := d.api(tx)
	if err != nil {
		return nil, err
	}
	node, err := api.CreateNodeUnlessExists(ctx, key, graph.LabelEntity)
	if err != nil {
		return nil, err
	}
	return grid.NewTuple(NewContainerSnapshot(node)), nil
}

func (d *Neo4j) UpdateTuple(ctx context.Context, tx grid.Tx, tuple *grid.Tuple, key grid.EntityKey, _ grid.TupleContext) error {
	if _, err := d.api(tx); err != nil {
		return err
	}
	snapshot, ok := tuple.Snapshot().(*ContainerSnapshot)
	if !ok {
		return fmt.Errorf("tuple for %s is not backed by a graph element", key)
	}
	return applyTupleOperations(ctx, snapshot.Container(), tuple.Operations())
}

func (d *Neo4j) RemoveTuple(ctx context.Context, tx grid.Tx, key grid.EntityKey, _ grid.TupleContext) error {
	api, err := d.api(tx)
	if err != nil {
		return err
	}
	return api.RemoveEntity(ctx, key)
}

// CreateTupleAssociation resolves one association row into graph state. For
// bidirectional associations the framework calls it twice with the same
// RowKey, once per side; the first call stages the row on a TEMP_NODE, the
// second reconciles the staging node into the pair of real relationships.
// Everything relies on both calls sharing one transaction.
func (d *Neo4j) CreateTupleAssociation(ctx context.Context, tx grid.Tx, key grid.AssociationKey, rowKey grid.RowKey) (*grid.Tuple, error) {
	api, err := d.api(tx)
	if err != nil {
		return nil, err
	}
	container, err := d.resolveAssociationRow(ctx, api, key, rowKey)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, nil
	}
	return grid.NewTuple(NewContainerSnapshot(container)), nil
}

func (d *Neo4j) resolveAssociationRow(ctx context.Context, api graph.API, key grid.AssociationKey, rowKey grid.RowKey) (graph.PropertyContainer, error) {
	rowNode, err := api.FindRowNode(ctx, rowKey)
	if err != nil {
		return nil, err
	}
	switch {
	case rowNode == nil:
		endNode, err := api.FindNode(ctx, endNodeKey(key, rowKey), graph.LabelEntity)
		if err != nil {
			return nil, err
		}
		if endNode == nil {
			// The far side of the association does not exist yet: stage the
			// row columns on a TEMP_NODE until the second call arrives.
			return d.relationshipToTempNode(ctx, api, key, rowKey)
		}
		if key.CollectionRole == rowKey.Table {
			// Unidirectional many-to-one: the owner's own columns already
			// encode the link, no extra relationship wanted.
			return endNode, nil
		}
		return d.relationshipWithEntity(ctx, api, key, rowKey, endNode)

	case rowNode.HasLabel(graph.LabelEntity):
		return d.relationshipWithEntity(ctx, api, key, rowKey, rowNode)

	case rowNode.HasLabel(graph.LabelTempNode):
		return d.reconcileTempNode(ctx, api, key, rowKey, rowNode)

	default:
		return nil, fmt.Errorf("association row node %s has neither ENTITY nor TEMP_NODE label: %w",
			rowNode.ElementID(), ErrInconsistentGraph)
	}
}

// endNodeKey derives the key of the entity on the far side of the
// relationship: the row key's columns minus the columns the association
// itself contributes.
func endNodeKey(key grid.AssociationKey, rowKey grid.RowKey) grid.EntityKey {
	var names []string
	var values []any
	for i, column := range rowKey.ColumnNames {
		if !key.IsOwnerColumn(column) {
			names = append(names, column)
			if i < len(rowKey.ColumnValues) {
				values = append(values, rowKey.ColumnValues[i])
			} else {
				values = append(values, nil)
			}
		}
	}
	return grid.EntityKey{
		Metadata:     grid.EntityKeyMetadata{Table: key.Table, ColumnNames: names},
		ColumnValues: values,
	}
}

func (d *Neo4j) relationshipToTempNode(ctx context.Context, api graph.API, key grid.AssociationKey, rowKey grid.RowKey) (graph.PropertyContainer, error) {
	tempNode, err := api.CreateNodeUnlessExists(ctx, rowNodeKey(rowKey), graph.LabelTempNode)
	if err != nil {
		return nil, err
	}
	return d.relationshipWithEntity(ctx, api, key, rowKey, tempNode)
}

func (d *Neo4j) relationshipWithEntity(ctx context.Context, api graph.API, key grid.AssociationKey, rowKey grid.RowKey, node graph.Node) (graph.PropertyContainer, error) {
	owner, err := api.FindNode(ctx, key.EntityKey, graph.LabelEntity)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("association owner %s not found", key.EntityKey)
	}
	return api.CreateRelationship(ctx, owner.ElementID(), node.ElementID(), graph.RelationshipType(key), rowKey.Columns())
}

// reconcileTempNode is the second call of a bidirectional resolution: the
// staging node's single incoming relationship identifies the other owner.
// That relationship is replaced by a direct edge from the other owner to the
// current owner, the staging node is dropped, and — unless the collection
// role merely shadows the association table — a forward edge from the
// current owner is created as the row's primary relationship.
func (d *Neo4j) reconcileTempNode(ctx context.Context, api graph.API, key grid.AssociationKey, rowKey grid.RowKey, tempNode graph.Node) (graph.PropertyContainer, error) {
	owner, err := api.FindNode(ctx, key.EntityKey, graph.LabelEntity)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("association owner %s not found", key.EntityKey)
	}

	inverse, err := api.IncomingRelationship(ctx, tempNode.ElementID())
	if err != nil {
		return nil, err
	}
	if inverse == nil {
		return nil, fmt.Errorf("staging node %s has no incoming relationship: %w",
			tempNode.ElementID(), ErrInconsistentGraph)
	}

	newInverse, err := api.CreateRelationship(ctx, inverse.StartElementID(), owner.ElementID(), inverse.Type(), rowKey.Columns())
	if err != nil {
		return nil, err
	}
	// Dropping the staging node also drops the old inverse relationship.
	if err := api.DetachDeleteNode(ctx, tempNode.ElementID()); err != nil {
		return nil, err
	}
	d.logger.Debug("staging node reconciled",
		"row", rowKey.String(),
		"role", key.CollectionRole)

	if key.CollectionRole == key.Table {
		return nil, nil
	}
	return api.CreateRelationship(ctx, owner.ElementID(), newInverse.StartElementID(), graph.RelationshipType(key), rowKey.Columns())
}

func rowNodeKey(rowKey grid.RowKey) grid.EntityKey {
	return grid.EntityKey{
		Metadata:     grid.EntityKeyMetadata{Table: rowKey.Table, ColumnNames: rowKey.ColumnNames},
		ColumnValues: rowKey.ColumnValues,
	}
}

func (d *Neo4j) GetAssociation(ctx context.Context, tx grid.Tx, key grid.AssociationKey, _ grid.AssociationContext) (*grid.Association, error) {
	api, err := d.api(tx)
	if err != nil {
		return nil, err
	}
	owner, err := api.FindNode(ctx, key.EntityKey, graph.LabelEntity)
	if err != nil || owner == nil {
		return nil, err
	}
	snapshot, err := newAssociationSnapshot(ctx, api, owner, key)
	if err != nil {
		return nil, err
	}
	return grid.NewAssociation(snapshot), nil
}

// CreateAssociation performs no graph writes; the first row flush does.
func (d *Neo4j) CreateAssociation(context.Context, grid.Tx, grid.AssociationKey, grid.AssociationContext) (*grid.Association, error) {
	return grid.NewAssociation(nil), nil
}

func (d *Neo4j) UpdateAssociation(ctx context.Context, tx grid.Tx, association *grid.Association, key grid.AssociationKey, assocCtx grid.AssociationContext) error {
	api, err := d.api(tx)
	if err != nil {
		return err
	}
	for _, op := range association.Operations() {
		switch op.Kind {
		case grid.OpClear:
			if err := api.RemoveAssociation(ctx, key); err != nil {
				return err
			}
		case grid.OpPut:
			if err := d.putAssociationRow(ctx, api, key, op); err != nil {
				return err
			}
		case grid.OpPutNull, grid.OpRemove:
			if err := api.RemoveRelationship(ctx, key, op.Key); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown association operation %v", op.Kind)
		}
	}
	return nil
}

func (d *Neo4j) putAssociationRow(ctx context.Context, api graph.API, key grid.AssociationKey, op grid.AssociationOperation) error {
	rel, err := api.FindRelationship(ctx, key, op.Key)
	if err != nil {
		return err
	}
	if rel == nil {
		return fmt.Errorf("no relationship for row %s of %s", op.Key, key)
	}
	return applyTupleOperations(ctx, rel, op.Value.Operations())
}

// RemoveAssociation drops every relationship of the association. A zero key
// is a no-op, matching the framework's contract for absent associations.
func (d *Neo4j) RemoveAssociation(ctx context.Context, tx grid.Tx, key grid.AssociationKey, _ grid.AssociationContext) error {
	if key.CollectionRole == "" {
		return nil
	}
	api, err := d.api(tx)
	if err != nil {
		return err
	}
	return api.RemoveAssociation(ctx, key)
}

// IsStoredInEntityStructure is always false: associations are never folded
// into the owning node's property set, they live as relationships.
func (d *Neo4j) IsStoredInEntityStructure(grid.AssociationKey, grid.AssociationContext) bool {
	return false
}

func (d *Neo4j) NextValue(ctx context.Context, tx grid.Tx, key grid.RowKey, increment, initialValue int64) (int64, error) {
	return d.sequences.NextValue(ctx, tx, key, increment, initialValue)
}

// OverrideType performs no conversions; the framework's defaults apply.
func (d *Neo4j) OverrideType(string) grid.GridType { return nil }

func (d *Neo4j) ForEachTuple(ctx context.Context, tx grid.Tx, consumer grid.ConsumerFunc, metadatas ...grid.EntityKeyMetadata) error {
	api, err := d.api(tx)
	if err != nil {
		return err
	}
	for _, metadata := range metadatas {
		if err := d.scanTable(ctx, api, consumer, metadata.Table); err != nil {
			return err
		}
	}
	return nil
}

func (d *Neo4j) scanTable(ctx context.Context, api graph.API, consumer grid.ConsumerFunc, table string) error {
	cursor, err := api.FindNodes(ctx, table)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		if err := consumer(grid.NewTuple(NewContainerSnapshot(cursor.Node()))); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (d *Neo4j) ExecuteBackendQuery(ctx context.Context, tx grid.Tx, query grid.BackendQuery, metadatas []grid.EntityKeyMetadata) (grid.TupleIterator, error) {
	api, err := d.api(tx)
	if err != nil {
		return nil, err
	}
	rows, err := api.ExecuteQuery(ctx, query.Query, query.Parameters)
	if err != nil {
		return nil, err
	}
	if len(metadatas) == 1 {
		return &nodesTupleIterator{rows: rows}, nil
	}
	return &mapsTupleIterator{rows: rows}, nil
}

func (d *Neo4j) ParameterMetadataBuilder() grid.ParameterMetadataBuilder {
	return grid.NoOpParameterMetadataBuilder{}
}

// applyTupleOperations flushes a tuple's pending operations onto its backing
// node or relationship. PUT_NULL and REMOVE are equivalent here: the
// substrate stores null as absence, so both remove the property.
func applyTupleOperations(ctx context.Context, container graph.PropertyContainer, ops []grid.TupleOperation) error {
	for _, op := range ops {
		switch op.Kind {
		case grid.OpPut:
			if err := container.SetProperty(ctx, op.Column, op.Value); err != nil {
				return err
			}
		case grid.OpPutNull, grid.OpRemove:
			if err := container.RemoveProperty(ctx, op.Column); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown tuple operation %v", op.Kind)
		}
	}
	return nil
}

var _ grid.Dialect = (*Neo4j)(nil)
