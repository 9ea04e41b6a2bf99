// Package graph is the access layer over the graph substrate: nodes with
// label sets and scalar properties, directed typed relationships, and a
// Cypher execution entry point. Every operation runs inside a caller-supplied
// ambient transaction; this layer never opens transactions or retries, and
// substrate failures propagate unmodified.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Label marks the role of a node in the grid mapping.
type Label string

const (
	// LabelEntity marks a node holding a persisted entity.
	LabelEntity Label = "ENTITY"
	// LabelTempNode marks a transaction-scoped staging node holding one
	// side of a not-yet-reconciled bidirectional association row.
	LabelTempNode Label = "TEMP_NODE"
	// LabelSequence marks a node backing a sequence generator.
	LabelSequence Label = "SEQUENCE"
)

// Rows is a forward-only cursor over the records of one query. Close must be
// called to release substrate resources; it discards any remaining records.
type Rows interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
	Close(ctx context.Context) error
}

// Tx is the ambient transaction handle this layer executes against.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Rows, error)
}

// Runner is the query surface shared by neo4j.ManagedTransaction and
// neo4j.ExplicitTransaction.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

// WrapTransaction adapts a driver transaction to the Tx contract.
func WrapTransaction(run Runner) Tx {
	return runnerTx{run: run}
}

type runnerTx struct {
	run Runner
}

func (t runnerTx) Run(ctx context.Context, cypher string, params map[string]any) (Rows, error) {
	result, err := t.run.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &driverRows{result: result}, nil
}

type driverRows struct {
	result neo4j.ResultWithContext
}

func (r *driverRows) Next(ctx context.Context) bool { return r.result.Next(ctx) }
func (r *driverRows) Record() *neo4j.Record         { return r.result.Record() }
func (r *driverRows) Err() error                    { return r.result.Err() }

func (r *driverRows) Close(ctx context.Context) error {
	_, err := r.result.Consume(ctx)
	return err
}

// PropertyContainer unifies nodes and relationships as holders of string-keyed
// scalar properties. The substrate forbids null-valued properties: setting a
// nil value removes the property, and reading an absent property yields nil.
type PropertyContainer interface {
	// Property returns the value of a property, nil when absent.
	Property(name string) any
	// Properties returns a copy of all properties.
	Properties() map[string]any
	// SetProperty writes a property. A nil value removes it.
	SetProperty(ctx context.Context, name string, value any) error
	// RemoveProperty removes a property; removing an absent property is a
	// no-op.
	RemoveProperty(ctx context.Context, name string) error
}

// Node is a labeled node handle bound to the transaction it was loaded in.
type Node interface {
	PropertyContainer
	ElementID() string
	HasLabel(label Label) bool
}

// Relationship is a directed typed relationship handle bound to the
// transaction it was loaded in.
type Relationship interface {
	PropertyContainer
	ElementID() string
	Type() string
	StartElementID() string
	EndElementID() string
}

// NodeCursor iterates nodes of one table. Close must always be called, even
// when iteration stops early.
type NodeCursor interface {
	Next(ctx context.Context) bool
	Node() Node
	Err() error
	Close(ctx context.Context) error
}
