package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/errors"
	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/grid"
	"github.com/gridstore/gridstore-go/internal/sequence"
)

var (
	sequenceIncrement int64
	sequenceInitial   int64
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence NAME",
	Short: "Fetch the next value of a named sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runSequence,
}

func init() {
	sequenceCmd.Flags().Int64Var(&sequenceIncrement, "increment", 1, "amount the sequence advances by")
	sequenceCmd.Flags().Int64Var(&sequenceInitial, "initial", 1, "value of the sequence on first use")
}

func runSequence(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	key := grid.RowKey{
		Table:        "sequences",
		ColumnNames:  []string{"sequence_name"},
		ColumnValues: []any{args[0]},
	}

	var value int64
	switch cfg.Sequence.Source {
	case "bolt":
		source, err := sequence.OpenBolt(cfg.Sequence.BoltPath)
		if err != nil {
			return errors.DatabaseError(err, "failed to open sequence database")
		}
		defer source.Close()
		value, err = source.NextValue(ctx, nil, key, sequenceIncrement, sequenceInitial)
		if err != nil {
			return errors.DatabaseError(err, "sequence fetch failed")
		}
	case "graph", "":
		client, err := openGraph(ctx)
		if err != nil {
			return errors.DatabaseError(err, "failed to connect to neo4j")
		}
		defer client.Close(ctx)

		source := sequence.NewGraphSource()
		err = client.ExecuteWrite(ctx, func(tx graph.Tx) error {
			var nextErr error
			value, nextErr = source.NextValue(ctx, tx, key, sequenceIncrement, sequenceInitial)
			return nextErr
		})
		if err != nil {
			return errors.DatabaseError(err, "sequence fetch failed")
		}
	default:
		return errors.ConfigErrorf("unknown sequence source %q", cfg.Sequence.Source)
	}

	fmt.Println(value)
	return nil
}
