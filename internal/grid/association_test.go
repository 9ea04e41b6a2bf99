package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowKey(value any) RowKey {
	return RowKey{
		Table:        "Person_addresses",
		ColumnNames:  []string{"person_id", "address_id"},
		ColumnValues: []any{int64(1), value},
	}
}

type fixedSnapshot map[string]*Tuple

func (s fixedSnapshot) Get(key RowKey) *Tuple { return s[key.CanonicalString()] }

func (s fixedSnapshot) RowKeys() []RowKey { return nil }

func (s fixedSnapshot) Size() int { return len(s) }

func TestAssociation_GetPrefersPendingOperations(t *testing.T) {
	persisted := NewTuple(MapSnapshot{"address_id": int64(7)})
	assoc := NewAssociation(fixedSnapshot{rowKey(int64(7)).CanonicalString(): persisted})

	assert.Same(t, persisted, assoc.Get(rowKey(int64(7))))

	updated := NewTuple(MapSnapshot{"address_id": int64(8)})
	assoc.Put(rowKey(int64(7)), updated)
	assert.Same(t, updated, assoc.Get(rowKey(int64(7))))

	assoc.Remove(rowKey(int64(7)))
	assert.Nil(t, assoc.Get(rowKey(int64(7))))
}

func TestAssociation_NilPutRecordsPutNull(t *testing.T) {
	assoc := NewAssociation(nil)
	assoc.Put(rowKey(int64(1)), nil)

	ops := assoc.Operations()
	if assert.Len(t, ops, 1) {
		assert.Equal(t, OpPutNull, ops[0].Kind)
	}
}

func TestAssociation_ClearResetsLogAndHidesSnapshot(t *testing.T) {
	persisted := NewTuple(MapSnapshot{"address_id": int64(7)})
	assoc := NewAssociation(fixedSnapshot{rowKey(int64(7)).CanonicalString(): persisted})

	assoc.Put(rowKey(int64(9)), NewTuple(nil))
	assoc.Clear()

	assert.Nil(t, assoc.Get(rowKey(int64(7))))
	assert.True(t, assoc.IsEmpty())

	ops := assoc.Operations()
	if assert.Len(t, ops, 1) {
		assert.Equal(t, OpClear, ops[0].Kind)
	}

	// Puts after a clear append behind the CLEAR operation.
	assoc.Put(rowKey(int64(2)), NewTuple(nil))
	ops = assoc.Operations()
	if assert.Len(t, ops, 2) {
		assert.Equal(t, OpClear, ops[0].Kind)
		assert.Equal(t, OpPut, ops[1].Kind)
	}
	assert.False(t, assoc.IsEmpty())
}

func TestAssociation_LaterOperationOnSameRowReplacesInPlace(t *testing.T) {
	assoc := NewAssociation(nil)
	assoc.Put(rowKey(int64(1)), NewTuple(nil))
	assoc.Put(rowKey(int64(2)), NewTuple(nil))
	assoc.Remove(rowKey(int64(1)))

	ops := assoc.Operations()
	if assert.Len(t, ops, 2) {
		assert.Equal(t, OpRemove, ops[0].Kind)
		assert.Equal(t, rowKey(int64(1)).CanonicalString(), ops[0].Key.CanonicalString())
		assert.Equal(t, OpPut, ops[1].Kind)
	}
}

func TestAssociation_IsEmpty(t *testing.T) {
	assert.True(t, NewAssociation(nil).IsEmpty())

	withRow := NewAssociation(fixedSnapshot{"x": NewTuple(nil)})
	assert.False(t, withRow.IsEmpty())

	withRow.Clear()
	assert.True(t, withRow.IsEmpty())
}
