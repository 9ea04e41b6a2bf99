package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, "http://localhost:5984", cfg.CouchDB.URL)
	assert.Equal(t, 10, cfg.CouchDB.RateLimit)
	assert.Equal(t, "graph", cfg.Sequence.Source)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://db:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("COUCHDB_RATE_LIMIT", "25")
	t.Setenv("SEQUENCE_SOURCE", "bolt")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bolt://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, 25, cfg.CouchDB.RateLimit)
	assert.Equal(t, "bolt", cfg.Sequence.Source)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
neo4j:
  uri: bolt://filehost:7687
  user: admin
couchdb:
  database: custom
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt://filehost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "admin", cfg.Neo4j.User)
	assert.Equal(t, "custom", cfg.CouchDB.Database)
	// Unset values keep their defaults.
	assert.Equal(t, "http://localhost:5984", cfg.CouchDB.URL)
}
