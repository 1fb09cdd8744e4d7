package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the cursor returned by Session.Run. neo4j.ResultWithContext
// satisfies it.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Single(ctx context.Context) (*neo4j.Record, error)
	Err() error
}

// Session runs parameterized statements. It is scoped to one call and must be
// closed on every exit path.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	Close(ctx context.Context) error
}

// SessionOpener hands out sessions against the graph store.
type SessionOpener interface {
	OpenSession(ctx context.Context) Session
}

// GraphDriver is the full store capability used by the service.
type GraphDriver interface {
	SessionOpener
	ApplySchema(ctx context.Context, statements []string) (applied int, err error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}
