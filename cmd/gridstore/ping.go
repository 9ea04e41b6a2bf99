package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gridstore/gridstore-go/internal/errors"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the graph backend and the document store",
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client, err := openGraph(ctx)
		if err != nil {
			return errors.DatabaseErrorf(err, "neo4j at %s", cfg.Neo4j.URI)
		}
		defer client.Close(ctx)
		if err := client.HealthCheck(ctx); err != nil {
			return errors.DatabaseErrorf(err, "neo4j at %s", cfg.Neo4j.URI)
		}
		fmt.Printf("neo4j:   ok (%s)\n", cfg.Neo4j.URI)
		return nil
	})

	g.Go(func() error {
		client, err := openCouch()
		if err != nil {
			return errors.ConfigErrorf("couchdb: %v", err)
		}
		if err := client.Ping(ctx); err != nil {
			return errors.NetworkErrorf(err, "couchdb at %s", cfg.CouchDB.URL)
		}
		fmt.Printf("couchdb: ok (%s/%s)\n", cfg.CouchDB.URL, cfg.CouchDB.Database)
		return nil
	})

	return g.Wait()
}
