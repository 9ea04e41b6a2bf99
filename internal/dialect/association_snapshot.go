package dialect

import (
	"context"

	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

// associationSnapshot materializes the persisted rows of one association:
// every outgoing relationship of the collection role's type, keyed by the
// RowKey reconstructed from the relationship's stamped columns. A column not
// stamped on the relationship (it was null at stamp time, or belongs to the
// far end only) is read from the far-end node's properties instead.
type associationSnapshot struct {
	rows map[string]*grid.Tuple
	keys []grid.RowKey
}

func newAssociationSnapshot(ctx context.Context, api graph.API, owner graph.Node, key grid.AssociationKey) (*associationSnapshot, error) {
	relationships, err := api.Relationships(ctx, owner.ElementID(), graph.RelationshipType(key))
	if err != nil {
		return nil, err
	}
	snapshot := &associationSnapshot{rows: make(map[string]*grid.Tuple, len(relationships))}
	for _, rel := range relationships {
		rowKey, err := rowKeyOf(ctx, api, key, rel)
		if err != nil {
			return nil, err
		}
		snapshot.keys = append(snapshot.keys, rowKey)
		snapshot.rows[rowKey.CanonicalString()] = grid.NewTuple(NewContainerSnapshot(rel))
	}
	return snapshot, nil
}

func rowKeyOf(ctx context.Context, api graph.API, key grid.AssociationKey, rel graph.Relationship) (grid.RowKey, error) {
	values := make([]any, len(key.RowKeyColumnNames))
	var target graph.Node
	for i, column := range key.RowKeyColumnNames {
		value := rel.Property(column)
		if value == nil {
			if target == nil {
				var err error
				target, err = api.NodeByID(ctx, rel.EndElementID())
				if err != nil {
					return grid.RowKey{}, err
				}
			}
			if target != nil {
				value = target.Property(column)
			}
		}
		values[i] = value
	}
	return grid.RowKey{
		Table:        key.Table,
		ColumnNames:  key.RowKeyColumnNames,
		ColumnValues: values,
	}, nil
}

func (s *associationSnapshot) Get(key grid.RowKey) *grid.Tuple {
	return s.rows[key.CanonicalString()]
}

func (s *associationSnapshot) RowKeys() []grid.RowKey { return s.keys }

func (s *associationSnapshot) Size() int { return len(s.rows) }

var _ grid.AssociationSnapshot = (*associationSnapshot)(nil)
