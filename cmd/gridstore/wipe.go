package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/errors"
	"github.com/gridstore/gridstore-go/internal/graph"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe TABLE",
	Short: "Delete every node of a table, detaching its relationships",
	Args:  cobra.ExactArgs(1),
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "skip the confirmation prompt")
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	table := args[0]

	if !graph.ValidIdentifier(table) {
		return errors.ConfigErrorf("invalid table name %q", table)
	}

	if !wipeForce {
		fmt.Printf("This deletes all %s nodes and their relationships. Continue? [y/N] ", table)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("aborted")
			return nil
		}
	}

	client, err := openGraph(ctx)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to neo4j")
	}
	defer client.Close(ctx)

	err = client.ExecuteWrite(ctx, func(tx graph.Tx) error {
		rows, err := tx.Run(ctx, "MATCH (n:`"+table+"`) DETACH DELETE n", nil)
		if err != nil {
			return err
		}
		return rows.Close(ctx)
	})
	if err != nil {
		return errors.DatabaseError(err, "wipe failed")
	}

	logger.WithField("table", table).Info("table wiped")
	return nil
}
