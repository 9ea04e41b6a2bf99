package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/dialect"
	"github.com/gridstore/gridstore-go/internal/errors"
	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

var queryParams []string

var queryCmd = &cobra.Command{
	Use:   "query CYPHER",
	Short: "Run a read-only Cypher query and print the result tuples",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryParams, "param", "p", nil, "query parameter as name=value (repeatable)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	params := make(map[string]any, len(queryParams))
	for _, pair := range queryParams {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.ConfigErrorf("invalid parameter %q, expected name=value", pair)
		}
		params[name] = value
	}

	client, err := openGraph(ctx)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to neo4j")
	}
	defer client.Close(ctx)

	d := dialect.NewNeo4j()
	count := 0
	err = client.ExecuteRead(ctx, func(tx graph.Tx) error {
		iter, err := d.ExecuteBackendQuery(ctx, tx, grid.BackendQuery{
			Query:      args[0],
			Parameters: params,
		}, nil)
		if err != nil {
			return err
		}
		defer iter.Close(ctx)

		for iter.Next(ctx) {
			count++
			fmt.Println(formatTuple(iter.Tuple()))
		}
		return iter.Err()
	})
	if err != nil {
		return errors.DatabaseError(err, "query failed")
	}

	fmt.Printf("%d rows\n", count)
	return nil
}
