package grid

import (
	"fmt"
	"strings"
)

// EntityKeyMetadata identifies an entity type: the table it maps to and the
// ordered columns that form its identifier.
type EntityKeyMetadata struct {
	Table       string
	ColumnNames []string
}

// EntityKey identifies one entity instance. The column values are positional
// with respect to the metadata's column names.
type EntityKey struct {
	Metadata     EntityKeyMetadata
	ColumnValues []any
}

// NewEntityKey builds an EntityKey, trusting the caller to pass values in the
// same order as the metadata columns.
func NewEntityKey(metadata EntityKeyMetadata, values []any) EntityKey {
	return EntityKey{Metadata: metadata, ColumnValues: values}
}

// Table returns the table the entity maps to.
func (k EntityKey) Table() string { return k.Metadata.Table }

// ColumnNames returns the identifier columns.
func (k EntityKey) ColumnNames() []string { return k.Metadata.ColumnNames }

// Columns returns the key as a column->value map. Positions beyond the
// shorter of names/values are ignored.
func (k EntityKey) Columns() map[string]any {
	return columnMap(k.Metadata.ColumnNames, k.ColumnValues)
}

func (k EntityKey) String() string {
	return fmt.Sprintf("EntityKey(%s%s)", k.Metadata.Table, pairs(k.Metadata.ColumnNames, k.ColumnValues))
}

// AssociationKey identifies one side of a relationship collection: the owning
// entity, the name of the collection on the owner (which also determines the
// relationship type in the graph), the association table, the columns the
// owner contributes to each row, and the columns that form a RowKey.
type AssociationKey struct {
	EntityKey         EntityKey
	CollectionRole    string
	Table             string
	ColumnNames       []string
	RowKeyColumnNames []string
}

func (k AssociationKey) String() string {
	return fmt.Sprintf("AssociationKey(%s.%s)", k.EntityKey.Metadata.Table, k.CollectionRole)
}

// IsOwnerColumn reports whether the column belongs to the association itself
// rather than to the entity on the far side of the relationship.
func (k AssociationKey) IsOwnerColumn(column string) bool {
	for _, name := range k.ColumnNames {
		if name == column {
			return true
		}
	}
	return false
}

// RowKey identifies one row of an association. Its columns may encode the
// far-end entity's identifier, extra join-table columns, or both.
type RowKey struct {
	Table        string
	ColumnNames  []string
	ColumnValues []any
}

// Columns returns the row key as a column->value map.
func (k RowKey) Columns() map[string]any {
	return columnMap(k.ColumnNames, k.ColumnValues)
}

func (k RowKey) String() string {
	return fmt.Sprintf("RowKey(%s%s)", k.Table, pairs(k.ColumnNames, k.ColumnValues))
}

// CanonicalString produces a stable representation usable as a map key, since
// RowKey itself contains slices and cannot be compared directly.
func (k RowKey) CanonicalString() string {
	var sb strings.Builder
	sb.WriteString(k.Table)
	for i, name := range k.ColumnNames {
		sb.WriteByte('|')
		sb.WriteString(name)
		sb.WriteByte('=')
		if i < len(k.ColumnValues) {
			fmt.Fprintf(&sb, "%v", k.ColumnValues[i])
		}
	}
	return sb.String()
}

func columnMap(names []string, values []any) map[string]any {
	m := make(map[string]any, len(names))
	for i, name := range names {
		if i < len(values) {
			m[name] = values[i]
		}
	}
	return m
}

func pairs(names []string, values []any) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		if i < len(values) {
			fmt.Fprintf(&sb, "%v", values[i])
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
