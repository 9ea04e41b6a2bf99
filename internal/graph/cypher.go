package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gridstore/gridstore-go/internal/grid"
)

// identifierPattern matches names safe to splice into Cypher as labels,
// relationship types, and property names. Values always travel as
// parameters; identifiers are validated because Cypher cannot parameterize
// them.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ValidIdentifier reports whether s is safe to splice into Cypher as a label,
// relationship type, or property name.
func ValidIdentifier(s string) bool {
	return validIdentifier(s)
}

// cypherBuilder accumulates query text and the parameter map side by side,
// so every value is bound rather than concatenated.
type cypherBuilder struct {
	query   strings.Builder
	params  map[string]any
	counter int
	err     error
}

func newCypherBuilder() *cypherBuilder {
	return &cypherBuilder{params: make(map[string]any)}
}

// addParam registers a value and returns its placeholder.
func (b *cypherBuilder) addParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

func (b *cypherBuilder) write(s string) {
	b.query.WriteString(s)
}

// writeIdentifier splices a validated identifier into the query.
func (b *cypherBuilder) writeIdentifier(s string) {
	if !validIdentifier(s) {
		if b.err == nil {
			b.err = fmt.Errorf("invalid cypher identifier %q (must be alphanumeric or underscore)", s)
		}
		return
	}
	b.query.WriteString("`")
	b.query.WriteString(s)
	b.query.WriteString("`")
}

// writeNodePattern emits (alias:`table`:`label`) or (alias:`table`) when the
// label is empty.
func (b *cypherBuilder) writeNodePattern(alias, table string, label Label) {
	b.write("(")
	b.write(alias)
	b.write(":")
	b.writeIdentifier(table)
	if label != "" {
		b.write(":")
		b.writeIdentifier(string(label))
	}
	b.write(")")
}

// writeColumnMatch emits WHERE conditions comparing alias properties against
// the column values. Nil values compare with IS NULL, since the substrate
// stores null as absence.
func (b *cypherBuilder) writeColumnMatch(alias string, names []string, values []any) {
	for i, name := range names {
		if i > 0 {
			b.write(" AND ")
		}
		b.write(alias)
		b.write(".")
		b.writeIdentifier(name)
		var value any
		if i < len(values) {
			value = values[i]
		}
		if value == nil {
			b.write(" IS NULL")
		} else {
			b.write(" = ")
			b.write(b.addParam(value))
		}
	}
}

// writePropertyMap emits an inline {`col`: $p, ...} map, skipping nil values.
// Names are emitted in sorted order so query text is deterministic.
func (b *cypherBuilder) writePropertyMap(properties map[string]any) {
	names := make([]string, 0, len(properties))
	for name, value := range properties {
		if value != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	b.write("{")
	for i, name := range names {
		if i > 0 {
			b.write(", ")
		}
		b.writeIdentifier(name)
		b.write(": ")
		b.write(b.addParam(properties[name]))
	}
	b.write("}")
}

func (b *cypherBuilder) build() (string, map[string]any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.query.String(), b.params, nil
}

// nonNullColumns filters nil values out of a key's columns, since the
// substrate cannot store them.
func nonNullColumns(names []string, values []any) map[string]any {
	props := make(map[string]any, len(names))
	for i, name := range names {
		if i < len(values) && values[i] != nil {
			props[name] = values[i]
		}
	}
	return props
}

// entityMatch builds "MATCH (alias:table:label) WHERE cols" for an entity key.
func entityMatch(b *cypherBuilder, alias string, key grid.EntityKey, label Label) {
	b.write("MATCH ")
	b.writeNodePattern(alias, key.Metadata.Table, label)
	if len(key.Metadata.ColumnNames) > 0 {
		b.write(" WHERE ")
		b.writeColumnMatch(alias, key.Metadata.ColumnNames, key.ColumnValues)
	}
}
