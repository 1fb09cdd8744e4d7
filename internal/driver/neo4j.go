package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type Neo4jDriver struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger

	newSession func(ctx context.Context) Session // for testing
}

type Option func(*Neo4jDriver)

// WithDatabase selects a named database. Empty means the server default.
func WithDatabase(name string) Option {
	return func(d *Neo4jDriver) { d.database = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Neo4jDriver) { d.logger = l }
}

// NewNeo4jDriver connects over bolt and verifies connectivity before returning.
func NewNeo4jDriver(ctx context.Context, uri, username, password string, opts ...Option) (*Neo4jDriver, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}

	drv, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver for %s: %w", uri, err)
	}

	d := &Neo4jDriver{driver: drv, logger: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}

	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		return nil, err
	}

	d.logger.Info("Connected to graph store", zap.String("uri", uri), zap.String("database", d.database))
	return d, nil
}

func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	if d.driver == nil {
		return nil
	}
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph store unreachable: %w", err)
	}
	return nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	if d.driver == nil {
		return nil
	}
	return d.driver.Close(ctx)
}

// sessionAdapter adapts neo4j.SessionWithContext to Session.
type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := a.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (d *Neo4jDriver) OpenSession(ctx context.Context) Session {
	if d.newSession != nil {
		return d.newSession(ctx)
	}
	return &sessionAdapter{sess: d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})}
}

// ApplySchema runs bootstrap DDL one statement at a time. Lines starting with
// "//" are skipped. A failing statement is logged and does not stop the rest,
// since constraints and indexes may already exist.
func (d *Neo4jDriver) ApplySchema(ctx context.Context, statements []string) (int, error) {
	sess := d.OpenSession(ctx)
	defer sess.Close(ctx)

	applied := 0
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "//") {
			d.logger.Debug("Skipping schema comment", zap.String("statement", stmt))
			continue
		}
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		res, err := sess.Run(ctx, stmt, nil)
		if err == nil {
			err = Drain(ctx, res)
		}
		if err != nil {
			d.logger.Warn("Failed to apply schema statement", zap.String("statement", stmt), zap.Error(err))
			continue
		}
		applied++
	}
	return applied, nil
}

// Drain consumes every remaining record so that server-side errors surface.
func Drain(ctx context.Context, res Result) error {
	for res.Next(ctx) {
	}
	return res.Err()
}
