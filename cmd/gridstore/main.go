package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridstore/gridstore-go/internal/config"
	"github.com/gridstore/gridstore-go/internal/couchdb"
	"github.com/gridstore/gridstore-go/internal/graph"
	"github.com/gridstore/gridstore-go/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gridstore",
	Short: "GridStore - graph-backed datastore tooling",
	Long: `GridStore manages the Neo4j graph that backs the entity grid and the
CouchDB collaborator used for entity counting.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(logging.Config{
			Level:      level,
			OutputFile: cfg.Log.OutputFile,
			JSONFormat: cfg.Log.JSONFormat,
		}); err != nil {
			logger.WithError(err).Warn("Failed to initialize structured logging")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gridstore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`GridStore {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sequenceCmd)
	rootCmd.AddCommand(wipeCmd)
}

func openGraph(ctx context.Context) (*graph.Client, error) {
	return graph.NewClient(ctx,
		cfg.Neo4j.URI,
		cfg.Neo4j.User,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
}

func openCouch() (*couchdb.Client, error) {
	return couchdb.NewClient(cfg.CouchDB.URL, cfg.CouchDB.Database, cfg.CouchDB.RateLimit)
}
