package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/dialect"
	"github.com/gridstore/gridstore-go/internal/errors"
	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
)

var scanCmd = &cobra.Command{
	Use:   "scan TABLE [TABLE...]",
	Short: "Print every tuple of the given tables",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := openGraph(ctx)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to neo4j")
	}
	defer client.Close(ctx)

	metadatas := make([]grid.EntityKeyMetadata, 0, len(args))
	for _, table := range args {
		metadatas = append(metadatas, grid.EntityKeyMetadata{Table: table})
	}

	d := dialect.NewNeo4j()
	count := 0
	err = client.ExecuteRead(ctx, func(tx graph.Tx) error {
		return d.ForEachTuple(ctx, tx, func(tuple *grid.Tuple) error {
			count++
			fmt.Println(formatTuple(tuple))
			return nil
		}, metadatas...)
	})
	if err != nil {
		return errors.DatabaseError(err, "scan failed")
	}

	fmt.Printf("%d tuples\n", count)
	return nil
}

func formatTuple(tuple *grid.Tuple) string {
	out := "{"
	for i, column := range tuple.Columns() {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %v", column, tuple.Get(column))
	}
	return out + "}"
}
