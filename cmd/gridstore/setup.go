package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/errors"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the entity-counting design document in the document store",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := openCouch()
	if err != nil {
		return errors.ConfigErrorf("couchdb: %v", err)
	}

	if err := client.EnsureDesignDocument(ctx); err != nil {
		return errors.NetworkErrorf(err, "failed to install design document")
	}

	count, err := client.CountEntities(ctx)
	if err != nil {
		return errors.NetworkErrorf(err, "failed to query entity count")
	}

	fmt.Printf("design document installed, %d entities stored\n", count)
	return nil
}
