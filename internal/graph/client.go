package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps the Neo4j driver with connection pooling and transaction
// helpers. The dialect itself never opens transactions; the helpers here are
// for callers that own the transaction boundary (the framework, the CLI,
// integration tests).
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *slog.Logger
	database string
}

// NewClient connects to the substrate and verifies connectivity before
// returning, so misconfiguration fails at startup.
func NewClient(ctx context.Context, uri, user, password, database string) (*Client, error) {
	if uri == "" || user == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%q, user=%q", uri, user)
	}
	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := slog.Default().With("component", "graph")
	logger.Info("neo4j client connected", "uri", uri, "database", database)

	return &Client{driver: driver, logger: logger, database: database}, nil
}

// Close closes the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Info("neo4j client closed")
	return nil
}

// HealthCheck verifies substrate connectivity.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j health check failed: %w", err)
	}
	return nil
}

// Driver exposes the underlying driver for callers managing their own
// sessions.
func (c *Client) Driver() neo4j.DriverWithContext { return c.driver }

// Database returns the configured database name.
func (c *Client) Database() string { return c.database }

// ExecuteRead runs fn inside one managed read transaction, handing it the
// ambient transaction handle the access layer expects.
func (c *Client) ExecuteRead(ctx context.Context, fn func(tx Tx) error) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(WrapTransaction(mtx))
	})
	return err
}

// ExecuteWrite runs fn inside one managed write transaction. Both calls of a
// bidirectional association resolution must happen inside the same fn, since
// the staging node must not outlive the transaction.
func (c *Client) ExecuteWrite(ctx context.Context, fn func(tx Tx) error) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(WrapTransaction(mtx))
	})
	return err
}
