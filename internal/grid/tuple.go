package grid

// OperationKind tags a pending mutation on a tuple or association.
type OperationKind int

const (
	// OpPut sets a column (or association row) to a value.
	OpPut OperationKind = iota
	// OpPutNull marks a column as null. The graph substrate cannot store
	// null-valued properties, so on flush this removes the property.
	OpPutNull
	// OpRemove removes a column (or association row).
	OpRemove
	// OpClear drops every row of an association. Only valid on associations.
	OpClear
)

func (k OperationKind) String() string {
	switch k {
	case OpPut:
		return "PUT"
	case OpPutNull:
		return "PUT_NULL"
	case OpRemove:
		return "REMOVE"
	case OpClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// TupleSnapshot is the read-side projection of a node or relationship.
// Absent columns read as nil; mutation flows only through tuple operations.
type TupleSnapshot interface {
	// Get returns the current value of the column, nil when absent.
	Get(column string) any
	// Columns returns the column names present in the snapshot.
	Columns() []string
}

// EmptySnapshot is a TupleSnapshot with no columns, used for tuples that do
// not exist in the datastore yet.
type EmptySnapshot struct{}

func (EmptySnapshot) Get(string) any    { return nil }
func (EmptySnapshot) Columns() []string { return nil }

// MapSnapshot is a TupleSnapshot backed by a plain map, used for tuples
// projected out of arbitrary query results.
type MapSnapshot map[string]any

func (m MapSnapshot) Get(column string) any { return m[column] }

func (m MapSnapshot) Columns() []string {
	columns := make([]string, 0, len(m))
	for column := range m {
		columns = append(columns, column)
	}
	return columns
}

// TupleOperation is one pending mutation of a tuple column.
type TupleOperation struct {
	Kind   OperationKind
	Column string
	Value  any
}

// Tuple is a column->value view of one entity or association row: a snapshot
// of the persisted state plus an ordered log of pending operations. Reads see
// pending operations first, then fall back to the snapshot. A later operation
// on a column already present in the log replaces it in place, keeping the
// log's order stable.
type Tuple struct {
	snapshot TupleSnapshot
	ops      []TupleOperation
	index    map[string]int
}

// NewTuple wraps a snapshot with an empty operation log. A nil snapshot is
// treated as empty.
func NewTuple(snapshot TupleSnapshot) *Tuple {
	if snapshot == nil {
		snapshot = EmptySnapshot{}
	}
	return &Tuple{snapshot: snapshot}
}

// Snapshot returns the backing snapshot.
func (t *Tuple) Snapshot() TupleSnapshot { return t.snapshot }

// Get returns the effective value of a column: the pending operation's value
// if one exists, the snapshot's value otherwise.
func (t *Tuple) Get(column string) any {
	if i, ok := t.index[column]; ok {
		op := t.ops[i]
		if op.Kind == OpPut {
			return op.Value
		}
		return nil
	}
	return t.snapshot.Get(column)
}

// Put records a pending write. A nil value records PUT_NULL, since the graph
// substrate stores null as absence-of-property.
func (t *Tuple) Put(column string, value any) {
	if value == nil {
		t.record(TupleOperation{Kind: OpPutNull, Column: column})
		return
	}
	t.record(TupleOperation{Kind: OpPut, Column: column, Value: value})
}

// Remove records a pending removal of the column.
func (t *Tuple) Remove(column string) {
	t.record(TupleOperation{Kind: OpRemove, Column: column})
}

func (t *Tuple) record(op TupleOperation) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[op.Column]; ok {
		t.ops[i] = op
		return
	}
	t.index[op.Column] = len(t.ops)
	t.ops = append(t.ops, op)
}

// Operations returns the pending operation log in order.
func (t *Tuple) Operations() []TupleOperation { return t.ops }

// Columns returns the union of snapshot columns and pending-operation
// columns.
func (t *Tuple) Columns() []string {
	seen := make(map[string]bool)
	var columns []string
	for _, column := range t.snapshot.Columns() {
		if !seen[column] {
			seen[column] = true
			columns = append(columns, column)
		}
	}
	for _, op := range t.ops {
		if !seen[op.Column] {
			seen[op.Column] = true
			columns = append(columns, op.Column)
		}
	}
	return columns
}
