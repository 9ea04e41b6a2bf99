package dialect

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

// nodesTupleIterator projects each query row's first bound variable, a node,
// as a tuple. Used when the caller requested exactly one result shape.
type nodesTupleIterator struct {
	rows    graph.Rows
	current *grid.Tuple
}

func (it *nodesTupleIterator) Next(ctx context.Context) bool {
	if !it.rows.Next(ctx) {
		return false
	}
	record := it.rows.Record()
	if len(record.Values) > 0 {
		if node, ok := record.Values[0].(neo4j.Node); ok {
			it.current = grid.NewTuple(grid.MapSnapshot(node.Props))
			return true
		}
	}
	it.current = grid.NewTuple(grid.MapSnapshot(record.AsMap()))
	return true
}

func (it *nodesTupleIterator) Tuple() *grid.Tuple { return it.current }

func (it *nodesTupleIterator) Err() error { return it.rows.Err() }

func (it *nodesTupleIterator) Close(ctx context.Context) error { return it.rows.Close(ctx) }

// mapsTupleIterator projects each query row's full set of bound variables as
// a tuple, one column per variable.
type mapsTupleIterator struct {
	rows    graph.Rows
	current *grid.Tuple
}

func (it *mapsTupleIterator) Next(ctx context.Context) bool {
	if !it.rows.Next(ctx) {
		return false
	}
	it.current = grid.NewTuple(grid.MapSnapshot(it.rows.Record().AsMap()))
	return true
}

func (it *mapsTupleIterator) Tuple() *grid.Tuple { return it.current }

func (it *mapsTupleIterator) Err() error { return it.rows.Err() }

func (it *mapsTupleIterator) Close(ctx context.Context) error { return it.rows.Close(ctx) }

var (
	_ grid.TupleIterator = (*nodesTupleIterator)(nil)
	_ grid.TupleIterator = (*mapsTupleIterator)(nil)
)
