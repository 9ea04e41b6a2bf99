package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gridstore/gridstore-go/internal/grid"
)

const (
	nodeReturn = " RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props"
	relReturn  = " RETURN elementId(r) AS id, type(r) AS type, properties(r) AS props," +
		" elementId(startNode(r)) AS start, elementId(endNode(r)) AS end"
)

// CypherCRUD implements the access layer API by issuing parameterized Cypher
// through the ambient transaction. Node and relationship handles it returns
// cache their properties as loaded and write through the same transaction.
type CypherCRUD struct {
	tx Tx
}

// NewCypherCRUD binds the access layer to an ambient transaction.
func NewCypherCRUD(tx Tx) *CypherCRUD {
	return &CypherCRUD{tx: tx}
}

func (c *CypherCRUD) FindNode(ctx context.Context, key grid.EntityKey, label Label) (Node, error) {
	b := newCypherBuilder()
	entityMatch(b, "n", key, label)
	b.write(nodeReturn)
	record, err := c.single(ctx, b)
	if err != nil || record == nil {
		return nil, err
	}
	return c.nodeFromRecord(record)
}

func (c *CypherCRUD) CreateNodeUnlessExists(ctx context.Context, key grid.EntityKey, label Label) (Node, error) {
	b := newCypherBuilder()
	b.write("MERGE ")
	b.write("(n:")
	b.writeIdentifier(key.Metadata.Table)
	b.write(":")
	b.writeIdentifier(string(label))
	b.write(" ")
	b.writePropertyMap(nonNullColumns(key.Metadata.ColumnNames, key.ColumnValues))
	b.write(")")
	b.write(nodeReturn)
	record, err := c.single(ctx, b)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("merge of %s returned no node", key)
	}
	return c.nodeFromRecord(record)
}

func (c *CypherCRUD) FindRowNode(ctx context.Context, key grid.RowKey) (Node, error) {
	b := newCypherBuilder()
	b.write("MATCH ")
	// Match on the table label only, so both entity and staging nodes are
	// candidates.
	b.writeNodePattern("n", key.Table, "")
	if len(key.ColumnNames) > 0 {
		b.write(" WHERE ")
		b.writeColumnMatch("n", key.ColumnNames, key.ColumnValues)
	}
	b.write(nodeReturn)
	record, err := c.single(ctx, b)
	if err != nil || record == nil {
		return nil, err
	}
	return c.nodeFromRecord(record)
}

func (c *CypherCRUD) NodeByID(ctx context.Context, elementID string) (Node, error) {
	query := "MATCH (n) WHERE elementId(n) = $id" + nodeReturn
	record, err := c.singleQuery(ctx, query, map[string]any{"id": elementID})
	if err != nil || record == nil {
		return nil, err
	}
	return c.nodeFromRecord(record)
}

func (c *CypherCRUD) CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) (Relationship, error) {
	b := newCypherBuilder()
	b.write("MATCH (a), (b) WHERE elementId(a) = ")
	b.write(b.addParam(startID))
	b.write(" AND elementId(b) = ")
	b.write(b.addParam(endID))
	b.write(" CREATE (a)-[r:")
	b.writeIdentifier(relType)
	b.write(" ")
	b.writePropertyMap(properties)
	b.write("]->(b)")
	b.write(relReturn)
	record, err := c.single(ctx, b)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("relationship %s not created: node %s or %s not found", relType, startID, endID)
	}
	return c.relationshipFromRecord(record)
}

func (c *CypherCRUD) Relationships(ctx context.Context, nodeID, relType string) ([]Relationship, error) {
	b := newCypherBuilder()
	b.write("MATCH (a)-[r:")
	b.writeIdentifier(relType)
	b.write("]->() WHERE elementId(a) = ")
	b.write(b.addParam(nodeID))
	b.write(relReturn)
	query, params, err := b.build()
	if err != nil {
		return nil, err
	}
	rows, err := c.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var relationships []Relationship
	for rows.Next(ctx) {
		relationship, err := c.relationshipFromRecord(rows.Record())
		if err != nil {
			rows.Close(ctx)
			return nil, err
		}
		relationships = append(relationships, relationship)
	}
	if err := rows.Err(); err != nil {
		rows.Close(ctx)
		return nil, err
	}
	return relationships, rows.Close(ctx)
}

func (c *CypherCRUD) IncomingRelationship(ctx context.Context, nodeID string) (Relationship, error) {
	query := "MATCH ()-[r]->(b) WHERE elementId(b) = $id" + relReturn + " LIMIT 1"
	record, err := c.singleQuery(ctx, query, map[string]any{"id": nodeID})
	if err != nil || record == nil {
		return nil, err
	}
	return c.relationshipFromRecord(record)
}

func (c *CypherCRUD) FindRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) (Relationship, error) {
	b := newCypherBuilder()
	entityMatch(b, "n", key.EntityKey, LabelEntity)
	b.write(" MATCH (n)-[r:")
	b.writeIdentifier(RelationshipType(key))
	b.write("]->()")
	if match := nonNullColumns(rowKey.ColumnNames, rowKey.ColumnValues); len(match) > 0 {
		b.write(" WHERE ")
		names := make([]string, 0, len(rowKey.ColumnNames))
		values := make([]any, 0, len(rowKey.ColumnNames))
		for i, name := range rowKey.ColumnNames {
			if _, ok := match[name]; ok {
				names = append(names, name)
				values = append(values, rowKey.ColumnValues[i])
			}
		}
		b.writeColumnMatch("r", names, values)
	}
	b.write(relReturn)
	b.write(" LIMIT 1")
	record, err := c.single(ctx, b)
	if err != nil || record == nil {
		return nil, err
	}
	return c.relationshipFromRecord(record)
}

func (c *CypherCRUD) RemoveEntity(ctx context.Context, key grid.EntityKey) error {
	b := newCypherBuilder()
	entityMatch(b, "n", key, LabelEntity)
	b.write(" DETACH DELETE n")
	return c.exec(ctx, b)
}

func (c *CypherCRUD) RemoveRelationship(ctx context.Context, key grid.AssociationKey, rowKey grid.RowKey) error {
	b := newCypherBuilder()
	entityMatch(b, "n", key.EntityKey, LabelEntity)
	b.write(" MATCH (n)-[r:")
	b.writeIdentifier(RelationshipType(key))
	b.write("]->()")
	if match := nonNullColumns(rowKey.ColumnNames, rowKey.ColumnValues); len(match) > 0 {
		b.write(" WHERE ")
		names := make([]string, 0, len(rowKey.ColumnNames))
		values := make([]any, 0, len(rowKey.ColumnNames))
		for i, name := range rowKey.ColumnNames {
			if _, ok := match[name]; ok {
				names = append(names, name)
				values = append(values, rowKey.ColumnValues[i])
			}
		}
		b.writeColumnMatch("r", names, values)
	}
	b.write(" DELETE r")
	return c.exec(ctx, b)
}

func (c *CypherCRUD) RemoveAssociation(ctx context.Context, key grid.AssociationKey) error {
	b := newCypherBuilder()
	entityMatch(b, "n", key.EntityKey, LabelEntity)
	b.write(" MATCH (n)-[r:")
	b.writeIdentifier(RelationshipType(key))
	b.write("]->() DELETE r")
	return c.exec(ctx, b)
}

func (c *CypherCRUD) DetachDeleteNode(ctx context.Context, elementID string) error {
	rows, err := c.tx.Run(ctx, "MATCH (n) WHERE elementId(n) = $id DETACH DELETE n", map[string]any{"id": elementID})
	if err != nil {
		return err
	}
	return rows.Close(ctx)
}

func (c *CypherCRUD) ExecuteQuery(ctx context.Context, query string, params map[string]any) (Rows, error) {
	return c.tx.Run(ctx, query, params)
}

func (c *CypherCRUD) FindNodes(ctx context.Context, table string) (NodeCursor, error) {
	b := newCypherBuilder()
	b.write("MATCH ")
	b.writeNodePattern("n", table, LabelEntity)
	b.write(nodeReturn)
	query, params, err := b.build()
	if err != nil {
		return nil, err
	}
	rows, err := c.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return &rowsNodeCursor{crud: c, rows: rows}, nil
}

func (c *CypherCRUD) exec(ctx context.Context, b *cypherBuilder) error {
	query, params, err := b.build()
	if err != nil {
		return err
	}
	rows, err := c.tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	return rows.Close(ctx)
}

// single runs the builder's query and returns its first record, nil when the
// query matches nothing. The cursor is always drained.
func (c *CypherCRUD) single(ctx context.Context, b *cypherBuilder) (*neo4j.Record, error) {
	query, params, err := b.build()
	if err != nil {
		return nil, err
	}
	return c.singleQuery(ctx, query, params)
}

func (c *CypherCRUD) singleQuery(ctx context.Context, query string, params map[string]any) (*neo4j.Record, error) {
	rows, err := c.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var record *neo4j.Record
	if rows.Next(ctx) {
		record = rows.Record()
	}
	if err := rows.Err(); err != nil {
		rows.Close(ctx)
		return nil, err
	}
	if err := rows.Close(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *CypherCRUD) nodeFromRecord(record *neo4j.Record) (Node, error) {
	id, props, err := idAndProps(record)
	if err != nil {
		return nil, err
	}
	rawLabels, _ := record.Get("labels")
	labelList, ok := rawLabels.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected labels type %T in node record", rawLabels)
	}
	labels := make(map[Label]bool, len(labelList))
	for _, l := range labelList {
		name, ok := l.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected label element type %T", l)
		}
		labels[Label(name)] = true
	}
	return &cypherNode{crud: c, id: id, labels: labels, props: props}, nil
}

func (c *CypherCRUD) relationshipFromRecord(record *neo4j.Record) (Relationship, error) {
	id, props, err := idAndProps(record)
	if err != nil {
		return nil, err
	}
	relType, _ := record.Get("type")
	start, _ := record.Get("start")
	end, _ := record.Get("end")
	typeName, ok := relType.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected relationship type %T in record", relType)
	}
	startID, _ := start.(string)
	endID, _ := end.(string)
	return &cypherRelationship{crud: c, id: id, relType: typeName, startID: startID, endID: endID, props: props}, nil
}

func idAndProps(record *neo4j.Record) (string, map[string]any, error) {
	rawID, _ := record.Get("id")
	id, ok := rawID.(string)
	if !ok {
		return "", nil, fmt.Errorf("unexpected element id type %T in record", rawID)
	}
	rawProps, _ := record.Get("props")
	props, ok := rawProps.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("unexpected properties type %T in record", rawProps)
	}
	return id, props, nil
}

type rowsNodeCursor struct {
	crud    *CypherCRUD
	rows    Rows
	current Node
	err     error
}

func (c *rowsNodeCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.rows.Next(ctx) {
		return false
	}
	node, err := c.crud.nodeFromRecord(c.rows.Record())
	if err != nil {
		c.err = err
		return false
	}
	c.current = node
	return true
}

func (c *rowsNodeCursor) Node() Node { return c.current }

func (c *rowsNodeCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowsNodeCursor) Close(ctx context.Context) error { return c.rows.Close(ctx) }
