package dialect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
	"github.com/gridstore/gridstore-go/internal/sequence"
)

var (
	personMetadata  = grid.EntityKeyMetadata{Table: "Person", ColumnNames: []string{"id"}}
	addressMetadata = grid.EntityKeyMetadata{Table: "Address", ColumnNames: []string{"id"}}
)

func personKey(id int64) grid.EntityKey {
	return grid.NewEntityKey(personMetadata, []any{id})
}

func addressKey(id int64) grid.EntityKey {
	return grid.NewEntityKey(addressMetadata, []any{id})
}

// Keys of a bidirectional many-to-many between Person.addresses and
// Address.inhabitants, joined through Person_Address.
func manyToManyKeys(person, address grid.EntityKey) (grid.AssociationKey, grid.AssociationKey, grid.RowKey) {
	rowColumns := []string{"persons_id", "addresses_id"}
	personSide := grid.AssociationKey{
		EntityKey:         person,
		CollectionRole:    "addresses",
		Table:             "Person_Address",
		ColumnNames:       []string{"persons_id"},
		RowKeyColumnNames: rowColumns,
	}
	addressSide := grid.AssociationKey{
		EntityKey:         address,
		CollectionRole:    "inhabitants",
		Table:             "Person_Address",
		ColumnNames:       []string{"addresses_id"},
		RowKeyColumnNames: rowColumns,
	}
	row := grid.RowKey{
		Table:        "Person_Address",
		ColumnNames:  rowColumns,
		ColumnValues: []any{person.ColumnValues[0], address.ColumnValues[0]},
	}
	return personSide, addressSide, row
}

func TestNeo4j_TupleRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	missing, err := d.GetTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	require.NotNil(t, created)

	created.Put("name", "Ann")
	require.NoError(t, d.UpdateTuple(ctx, g, created, personKey(1), grid.TupleContext{}))

	loaded, err := d.GetTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(1), loaded.Get("id"))
	assert.Equal(t, "Ann", loaded.Get("name"))
}

func TestNeo4j_CreateTupleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)

	assert.Equal(t, 1, g.NodeCount())
}

func TestNeo4j_RemoveTuple(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	require.NoError(t, d.RemoveTuple(ctx, g, personKey(1), grid.TupleContext{}))

	loaded, err := d.GetTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.Equal(t, 0, g.NodeCount())
}

func TestNeo4j_PutNullEquivalentToRemove(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	tuple, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	tuple.Put("nickname", "annie")
	require.NoError(t, d.UpdateTuple(ctx, g, tuple, personKey(1), grid.TupleContext{}))

	viaNull, err := d.GetTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	viaNull.Put("nickname", nil)
	require.NoError(t, d.UpdateTuple(ctx, g, viaNull, personKey(1), grid.TupleContext{}))

	loaded, err := d.GetTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	assert.Nil(t, loaded.Get("nickname"))
	assert.NotContains(t, loaded.Columns(), "nickname")
}

func TestNeo4j_UpdateTupleRejectsDetachedTuple(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	detached := grid.NewTuple(grid.MapSnapshot{"id": int64(1)})
	err := d.UpdateTuple(ctx, g, detached, personKey(1), grid.TupleContext{})
	require.Error(t, err)
}

func TestNeo4j_BidirectionalAssociationRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))

	// First side stages the row on a TEMP_NODE.
	staged, err := d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, 1, g.CountLabel(graph.LabelTempNode))
	assert.Equal(t, 1, g.RelationshipCount())

	// Second side replaces the staging node with the two real edges.
	resolved, err := d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, 0, g.CountLabel(graph.LabelTempNode))
	assert.Equal(t, 2, g.RelationshipCount())

	addresses := g.RelationshipsOfType("addresses")
	require.Len(t, addresses, 1)
	assert.Equal(t, int64(1), addresses[0].Property("persons_id"))
	assert.Equal(t, int64(7), addresses[0].Property("addresses_id"))

	inhabitants := g.RelationshipsOfType("inhabitants")
	require.Len(t, inhabitants, 1)
	assert.Equal(t, addresses[0].EndElementID(), inhabitants[0].StartElementID())
	assert.Equal(t, addresses[0].StartElementID(), inhabitants[0].EndElementID())
}

func TestNeo4j_ReconcileWithoutDistinctRoleReturnsNoTuple(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))
	// A collection role shadowing the association table wants no forward edge
	// of its own after reconciliation.
	addressSide.CollectionRole = addressSide.Table

	_, err = d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)

	resolved, err := d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)
	assert.Nil(t, resolved)
	assert.Equal(t, 0, g.CountLabel(graph.LabelTempNode))
	assert.Equal(t, 1, g.RelationshipCount())
}

func TestNeo4j_UnidirectionalManyToOneCreatesNoEdge(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	// The owner's own column encodes the link: the row's table is the target
	// table and the collection role matches it.
	key := grid.AssociationKey{
		EntityKey:         personKey(1),
		CollectionRole:    "Address",
		Table:             "Address",
		ColumnNames:       []string{"person_id"},
		RowKeyColumnNames: []string{"person_id", "id"},
	}
	row := grid.RowKey{
		Table:        "Address",
		ColumnNames:  []string{"person_id", "id"},
		ColumnValues: []any{int64(1), int64(7)},
	}

	tuple, err := d.CreateTupleAssociation(ctx, g, key, row)
	require.NoError(t, err)
	require.NotNil(t, tuple)
	assert.Equal(t, int64(7), tuple.Get("id"))
	assert.Equal(t, 0, g.RelationshipCount())
}

func TestNeo4j_CreateTupleAssociationFailsWithoutOwner(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	personSide, _, row := manyToManyKeys(personKey(1), addressKey(7))
	_, err := d.CreateTupleAssociation(ctx, g, personSide, row)
	require.Error(t, err)
}

func TestNeo4j_GetAssociationReadsStampedRows(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))
	_, err = d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)
	_, err = d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)

	assoc, err := d.GetAssociation(ctx, g, personSide, grid.AssociationContext{})
	require.NoError(t, err)
	require.NotNil(t, assoc)
	require.Equal(t, 1, assoc.Snapshot().Size())

	tuple := assoc.Get(row)
	require.NotNil(t, tuple)
	assert.Equal(t, int64(1), tuple.Get("persons_id"))
	assert.Equal(t, int64(7), tuple.Get("addresses_id"))
}

func TestNeo4j_GetAssociationForAbsentOwnerIsNil(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	personSide, _, _ := manyToManyKeys(personKey(1), addressKey(7))
	assoc, err := d.GetAssociation(ctx, g, personSide, grid.AssociationContext{})
	require.NoError(t, err)
	assert.Nil(t, assoc)
}

func TestNeo4j_UpdateAssociationClearRemovesAllRows(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))
	_, err = d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)
	_, err = d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)

	assoc, err := d.GetAssociation(ctx, g, personSide, grid.AssociationContext{})
	require.NoError(t, err)
	assoc.Clear()
	require.NoError(t, d.UpdateAssociation(ctx, g, assoc, personSide, grid.AssociationContext{}))

	assert.Empty(t, g.RelationshipsOfType("addresses"))
	// The other side's edge is untouched.
	assert.Len(t, g.RelationshipsOfType("inhabitants"), 1)
}

func TestNeo4j_UpdateAssociationRemovesSingleRow(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))
	_, err = d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)
	_, err = d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)

	assoc, err := d.GetAssociation(ctx, g, personSide, grid.AssociationContext{})
	require.NoError(t, err)
	assoc.Remove(row)
	require.NoError(t, d.UpdateAssociation(ctx, g, assoc, personSide, grid.AssociationContext{}))

	assert.Empty(t, g.RelationshipsOfType("addresses"))
}

func TestNeo4j_UpdateAssociationStampsRowColumns(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.CreateTuple(ctx, g, personKey(1), grid.TupleContext{})
	require.NoError(t, err)
	_, err = d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	personSide, addressSide, row := manyToManyKeys(personKey(1), addressKey(7))
	_, err = d.CreateTupleAssociation(ctx, g, personSide, row)
	require.NoError(t, err)
	_, err = d.CreateTupleAssociation(ctx, g, addressSide, row)
	require.NoError(t, err)

	assoc, err := d.GetAssociation(ctx, g, personSide, grid.AssociationContext{})
	require.NoError(t, err)
	rowTuple := assoc.Get(row)
	require.NotNil(t, rowTuple)
	rowTuple.Put("since", int64(2020))
	assoc.Put(row, rowTuple)
	require.NoError(t, d.UpdateAssociation(ctx, g, assoc, personSide, grid.AssociationContext{}))

	rels := g.RelationshipsOfType("addresses")
	require.Len(t, rels, 1)
	assert.Equal(t, int64(2020), rels[0].Property("since"))
}

func TestNeo4j_RemoveAssociationWithEmptyRoleIsNoOp(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	err := d.RemoveAssociation(ctx, g, grid.AssociationKey{}, grid.AssociationContext{})
	require.NoError(t, err)
}

func TestNeo4j_NextValueDelegatesToSequenceSource(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j(WithSequenceSource(sequence.NewMemorySource()))

	key := grid.RowKey{
		Table:        "sequences",
		ColumnNames:  []string{"sequence_name"},
		ColumnValues: []any{"person_id"},
	}

	first, err := d.NextValue(ctx, g, key, 1, 1)
	require.NoError(t, err)
	second, err := d.NextValue(ctx, g, key, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

// capturingGraph exposes the cursor handed to ForEachTuple so tests can
// assert it was released.
type capturingGraph struct {
	*graph.MemoryGraph
	cursor *graph.MemoryNodeCursor
}

func (g *capturingGraph) FindNodes(ctx context.Context, table string) (graph.NodeCursor, error) {
	cursor, err := g.MemoryGraph.FindNodes(ctx, table)
	if err != nil {
		return nil, err
	}
	g.cursor = cursor.(*graph.MemoryNodeCursor)
	return cursor, nil
}

func TestNeo4j_ForEachTupleVisitsEveryEntity(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	for id := int64(1); id <= 3; id++ {
		_, err := d.CreateTuple(ctx, g, personKey(id), grid.TupleContext{})
		require.NoError(t, err)
	}
	_, err := d.CreateTuple(ctx, g, addressKey(7), grid.TupleContext{})
	require.NoError(t, err)

	var seen []any
	err = d.ForEachTuple(ctx, g, func(tuple *grid.Tuple) error {
		seen = append(seen, tuple.Get("id"))
		return nil
	}, personMetadata)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{int64(1), int64(2), int64(3)}, seen)

	seen = nil
	err = d.ForEachTuple(ctx, g, func(tuple *grid.Tuple) error {
		seen = append(seen, tuple.Get("id"))
		return nil
	}, personMetadata, addressMetadata)
	require.NoError(t, err)
	assert.Len(t, seen, 4)
}

func TestNeo4j_ForEachTupleClosesCursorOnConsumerError(t *testing.T) {
	ctx := context.Background()
	g := &capturingGraph{MemoryGraph: graph.NewMemoryGraph()}
	d := NewNeo4j()

	for id := int64(1); id <= 3; id++ {
		_, err := d.CreateTuple(ctx, g, personKey(id), grid.TupleContext{})
		require.NoError(t, err)
	}

	boom := fmt.Errorf("consumer rejected tuple")
	err := d.ForEachTuple(ctx, g, func(*grid.Tuple) error { return boom }, personMetadata)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, g.cursor)
	assert.True(t, g.cursor.Closed())
}

func TestNeo4j_ExecuteBackendQueryNeedsQueryEngine(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	d := NewNeo4j()

	_, err := d.ExecuteBackendQuery(ctx, g, grid.BackendQuery{Query: "MATCH (n) RETURN n"}, nil)
	require.ErrorIs(t, err, graph.ErrNoQueryEngine)
}

func TestNeo4j_LockingStrategyNeverSupported(t *testing.T) {
	d := NewNeo4j()

	for _, mode := range []grid.LockMode{"PESSIMISTIC_WRITE", "PESSIMISTIC_READ", "OPTIMISTIC"} {
		err := d.LockingStrategy(mode)
		require.Error(t, err)
		assert.True(t, errors.Is(err, grid.ErrLockModeNotSupported))
	}
}

func TestNeo4j_StaticContracts(t *testing.T) {
	d := NewNeo4j()

	assert.False(t, d.IsStoredInEntityStructure(grid.AssociationKey{}, grid.AssociationContext{}))
	assert.Nil(t, d.OverrideType("string"))

	meta, err := d.ParameterMetadataBuilder().Build("MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Zero(t, meta.OrdinalCount)
	assert.Empty(t, meta.NamedParams)
}

func TestNeo4j_UnsupportedTransactionHandle(t *testing.T) {
	ctx := context.Background()
	d := NewNeo4j()

	_, err := d.GetTuple(ctx, "not a transaction", personKey(1), grid.TupleContext{})
	require.Error(t, err)
}
