// Package grid defines the dialect contract between a persistence framework
// and its NoSQL backends: composite keys, tuple and association models with
// pending-operation logs, and the Dialect interface each backend implements.
package grid

import (
	"context"
	"errors"
	"fmt"
)

// Tx is the caller-supplied ambient transaction handle. The framework owns
// transaction boundaries; dialects never begin, commit, or retry. Each
// dialect asserts the handle to its own substrate's transaction type.
type Tx any

// TupleContext carries optional per-call hints for tuple operations, such as
// the columns the caller intends to read. Dialects may ignore it.
type TupleContext struct {
	SelectableColumns []string
}

// AssociationContext carries optional per-call hints for association
// operations. Dialects may ignore it.
type AssociationContext struct {
	SelectableColumns []string
}

// LockMode names a locking strategy requested by the framework.
type LockMode string

// ErrLockModeNotSupported is returned by dialects whose backend offers no
// locking strategies at all.
var ErrLockModeNotSupported = errors.New("lock mode not supported by this grid dialect")

// GridType converts between the framework's value representation and the
// backend's. Dialects return nil from OverrideType when the framework's
// default handling applies.
type GridType interface {
	Name() string
}

// ParameterMetadata describes the bind parameters of a native query.
type ParameterMetadata struct {
	OrdinalCount int
	NamedParams  []string
}

// ParameterMetadataBuilder extracts parameter metadata from a native query
// string.
type ParameterMetadataBuilder interface {
	Build(query string) (ParameterMetadata, error)
}

// NoOpParameterMetadataBuilder reports no parameters for any query. Backends
// that pass native queries through unparsed use this.
type NoOpParameterMetadataBuilder struct{}

func (NoOpParameterMetadataBuilder) Build(string) (ParameterMetadata, error) {
	return ParameterMetadata{}, nil
}

// BackendQuery is a native query to execute against the substrate, plus the
// framework's positional parameters.
type BackendQuery struct {
	Query      string
	Parameters map[string]any
}

// TupleIterator is a forward-only, single-pass cursor over query results
// projected as tuples. Close must always be called to release substrate
// resources.
type TupleIterator interface {
	Next(ctx context.Context) bool
	Tuple() *Tuple
	Err() error
	Close(ctx context.Context) error
}

// ConsumerFunc receives one tuple per entity during bulk iteration. A
// non-nil error stops the iteration and propagates to the caller.
type ConsumerFunc func(*Tuple) error

// Dialect is the uniform contract a backend implements to take part in
// object persistence: entity CRUD, association CRUD, sequence values, bulk
// iteration, and native query execution. Absent entities and associations
// are reported as nil results, not errors; the caller decides between
// creation and failure.
type Dialect interface {
	// LockingStrategy returns the strategy for the requested lock mode, or
	// an error when the backend offers none.
	LockingStrategy(mode LockMode) error

	GetTuple(ctx context.Context, tx Tx, key EntityKey, tupleCtx TupleContext) (*Tuple, error)
	CreateTuple(ctx context.Context, tx Tx, key EntityKey, tupleCtx TupleContext) (*Tuple, error)
	UpdateTuple(ctx context.Context, tx Tx, tuple *Tuple, key EntityKey, tupleCtx TupleContext) error
	RemoveTuple(ctx context.Context, tx Tx, key EntityKey, tupleCtx TupleContext) error

	// CreateTupleAssociation resolves one association row into graph state.
	// The returned tuple wraps the resulting relationship (or entity node)
	// and may be nil when no distinct forward edge is needed.
	CreateTupleAssociation(ctx context.Context, tx Tx, key AssociationKey, rowKey RowKey) (*Tuple, error)

	GetAssociation(ctx context.Context, tx Tx, key AssociationKey, assocCtx AssociationContext) (*Association, error)
	CreateAssociation(ctx context.Context, tx Tx, key AssociationKey, assocCtx AssociationContext) (*Association, error)
	UpdateAssociation(ctx context.Context, tx Tx, association *Association, key AssociationKey, assocCtx AssociationContext) error
	RemoveAssociation(ctx context.Context, tx Tx, key AssociationKey, assocCtx AssociationContext) error

	// IsStoredInEntityStructure reports whether the backend folds the
	// association into the owning entity's own storage.
	IsStoredInEntityStructure(key AssociationKey, assocCtx AssociationContext) bool

	// NextValue returns the next value of the sequence identified by the
	// row key, seeded at initialValue and advanced by increment.
	NextValue(ctx context.Context, tx Tx, key RowKey, increment, initialValue int64) (int64, error)

	// OverrideType lets the dialect substitute its own value conversion for
	// a framework type. Nil means no override.
	OverrideType(name string) GridType

	// ForEachTuple streams every entity of the requested tables through the
	// consumer, releasing cursors even when the consumer fails.
	ForEachTuple(ctx context.Context, tx Tx, consumer ConsumerFunc, metadatas ...EntityKeyMetadata) error

	// ExecuteBackendQuery runs a native substrate query. With exactly one
	// result shape the iterator yields node-backed tuples; otherwise tuples
	// backed by the bound variables of each row.
	ExecuteBackendQuery(ctx context.Context, tx Tx, query BackendQuery, metadatas []EntityKeyMetadata) (TupleIterator, error)

	ParameterMetadataBuilder() ParameterMetadataBuilder
}

// UnsupportedLockModeError wraps ErrLockModeNotSupported with the requested
// mode for diagnostics.
func UnsupportedLockModeError(mode LockMode) error {
	return fmt.Errorf("lock mode %q: %w", mode, ErrLockModeNotSupported)
}
