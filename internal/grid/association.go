package grid

// AssociationSnapshot is the read-side projection of an association: the
// persisted rows keyed by RowKey.
type AssociationSnapshot interface {
	// Get returns the tuple for a row, nil when the row is absent.
	Get(key RowKey) *Tuple
	// RowKeys returns the keys of all persisted rows.
	RowKeys() []RowKey
	// Size returns the number of persisted rows.
	Size() int
}

// EmptyAssociationSnapshot is an AssociationSnapshot with no rows.
type EmptyAssociationSnapshot struct{}

func (EmptyAssociationSnapshot) Get(RowKey) *Tuple { return nil }
func (EmptyAssociationSnapshot) RowKeys() []RowKey { return nil }
func (EmptyAssociationSnapshot) Size() int         { return 0 }

// AssociationOperation is one pending mutation of an association row. For
// OpClear the key and value are zero.
type AssociationOperation struct {
	Kind  OperationKind
	Key   RowKey
	Value *Tuple
}

// Association is a RowKey->Tuple collection: a snapshot of the persisted rows
// plus an ordered log of pending operations. As with Tuple, reads see pending
// operations before the snapshot, and a later operation on the same row
// replaces the earlier one in place. Clearing resets the log to a single
// CLEAR operation that subsequent puts append after.
type Association struct {
	snapshot AssociationSnapshot
	ops      []AssociationOperation
	index    map[string]int
	cleared  bool
}

// NewAssociation wraps a snapshot with an empty operation log. A nil snapshot
// is treated as empty, which is how a brand-new association starts.
func NewAssociation(snapshot AssociationSnapshot) *Association {
	if snapshot == nil {
		snapshot = EmptyAssociationSnapshot{}
	}
	return &Association{snapshot: snapshot}
}

// Snapshot returns the backing snapshot.
func (a *Association) Snapshot() AssociationSnapshot { return a.snapshot }

// Get returns the effective tuple for a row: pending operations first, then
// the snapshot unless the association was cleared.
func (a *Association) Get(key RowKey) *Tuple {
	if i, ok := a.index[key.CanonicalString()]; ok {
		op := a.ops[i]
		if op.Kind == OpPut {
			return op.Value
		}
		return nil
	}
	if a.cleared {
		return nil
	}
	return a.snapshot.Get(key)
}

// Put records a pending row write. A nil tuple records PUT_NULL.
func (a *Association) Put(key RowKey, value *Tuple) {
	if value == nil {
		a.record(AssociationOperation{Kind: OpPutNull, Key: key})
		return
	}
	a.record(AssociationOperation{Kind: OpPut, Key: key, Value: value})
}

// Remove records a pending row removal.
func (a *Association) Remove(key RowKey) {
	a.record(AssociationOperation{Kind: OpRemove, Key: key})
}

// Clear drops all pending operations and records that every persisted row is
// to be removed on flush.
func (a *Association) Clear() {
	a.cleared = true
	a.ops = a.ops[:0]
	a.index = nil
}

func (a *Association) record(op AssociationOperation) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	canonical := op.Key.CanonicalString()
	if i, ok := a.index[canonical]; ok {
		a.ops[i] = op
		return
	}
	a.index[canonical] = len(a.ops)
	a.ops = append(a.ops, op)
}

// Operations returns the pending operation log in order. When the
// association was cleared, the log starts with a CLEAR operation.
func (a *Association) Operations() []AssociationOperation {
	if !a.cleared {
		return a.ops
	}
	ops := make([]AssociationOperation, 0, len(a.ops)+1)
	ops = append(ops, AssociationOperation{Kind: OpClear})
	return append(ops, a.ops...)
}

// IsEmpty reports whether the association has no effective rows: no pending
// puts and either a cleared or empty snapshot.
func (a *Association) IsEmpty() bool {
	for _, op := range a.ops {
		if op.Kind == OpPut {
			return false
		}
	}
	if a.cleared {
		return true
	}
	return a.snapshot.Size() == 0
}
