package database

import (
	"context"
	"fmt"

	"aml-risk-engine/internal/infrastructure/config"
	"aml-risk-engine/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jClient owns the driver connection and schema bootstrap for the
// entity/transaction graph the Transaction Source reads from.
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	cfg    config.Neo4JConfig
	logger *logger.Logger
}

// NewNeo4jClient connects to Neo4J and verifies connectivity.
func NewNeo4jClient(ctx context.Context, cfg config.Neo4JConfig, log *logger.Logger) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	client := &Neo4jClient{driver: driver, cfg: cfg, logger: log.WithComponent("neo4j-client")}
	if err := client.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// ensureSchema creates the constraints the entity/transaction graph relies
// on: one entity per (chain, address), one TRANSFERRED edge per hash.
func (c *Neo4jClient) ensureSchema(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.cfg.Database})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
		"CREATE CONSTRAINT transaction_hash IF NOT EXISTS FOR ()-[t:TRANSFERRED]-() REQUIRE t.hash IS UNIQUE",
		"CREATE INDEX entity_address IF NOT EXISTS FOR (e:Entity) ON (e.address)",
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("neo4j: ensure schema: %w", err)
		}
	}
	c.logger.Info("schema constraints ensured")
	return nil
}

// Session opens a new read session against the configured database.
func (c *Neo4jClient) Session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.cfg.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
}

// Close releases the underlying driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
