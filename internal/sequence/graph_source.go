package sequence

import (
	"context"
	"fmt"

	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

// GraphSource stores each sequence as a SEQUENCE-labeled node in the graph
// substrate, advanced inside the caller's ambient transaction. Single-writer
// transaction semantics make the read-and-advance safe without locking here.
type GraphSource struct{}

// NewGraphSource returns a graph-backed source.
func NewGraphSource() *GraphSource { return &GraphSource{} }

const nextValueQuery = `MERGE (n:SEQUENCE {sequence_name: $name})
ON CREATE SET n.value = $initial
WITH n, n.value AS current
SET n.value = current + $increment
RETURN current`

func (s *GraphSource) NextValue(ctx context.Context, tx grid.Tx, key grid.RowKey, increment, initialValue int64) (int64, error) {
	run, ok := tx.(graph.Tx)
	if !ok {
		if runner, okRunner := tx.(graph.Runner); okRunner {
			run = graph.WrapTransaction(runner)
		} else {
			return 0, fmt.Errorf("graph sequence source needs a graph transaction, got %T", tx)
		}
	}

	rows, err := run.Run(ctx, nextValueQuery, map[string]any{
		"name":      key.CanonicalString(),
		"initial":   initialValue,
		"increment": increment,
	})
	if err != nil {
		return 0, err
	}
	var current int64
	found := false
	if rows.Next(ctx) {
		value, ok := rows.Record().Get("current")
		if !ok {
			rows.Close(ctx)
			return 0, fmt.Errorf("sequence query returned no current value for %s", key)
		}
		number, ok := value.(int64)
		if !ok {
			rows.Close(ctx)
			return 0, fmt.Errorf("unexpected sequence value type %T for %s", value, key)
		}
		current = number
		found = true
	}
	if err := rows.Err(); err != nil {
		rows.Close(ctx)
		return 0, err
	}
	if err := rows.Close(ctx); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("sequence merge returned no row for %s", key)
	}
	return current, nil
}
