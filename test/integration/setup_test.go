//go:build integration

package integration

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/weaver/internal/config"
	"github.com/agenthands/weaver/internal/core"
	"github.com/agenthands/weaver/internal/driver"
	"github.com/agenthands/weaver/internal/schema"
)

const testDimensions = 16

// hashEmbedder maps a text to a deterministic unit vector so identical texts
// score 1.0 without an embedding service.
type hashEmbedder struct{}

func (hashEmbedder) Vector(ctx context.Context, text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, testDimensions)
	var norm float64
	for i := range vec {
		v := float64(binary.BigEndian.Uint16(sum[(i*2)%len(sum):])) - 32768
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func connect(t *testing.T) *driver.Neo4jDriver {
	t.Helper()
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("Skipping integration test: NEO4J_URI not set")
	}
	d, err := driver.NewNeo4jDriver(context.Background(), uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"),
		driver.WithDatabase(os.Getenv("NEO4J_DATABASE")))
	require.NoError(t, err)
	return d
}

// runLabel returns a label unique to this test run, so indexes and data never
// collide with other runs.
func runLabel(base string) string {
	return base + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// newRunWeaver builds a Weaver over a registry with a Place and an Area label
// unique to this run, applies its schema and waits for the indexes. Data and
// indexes are dropped on cleanup.
func newRunWeaver(t *testing.T, mutate func(*config.Config)) (*core.Weaver, string, string) {
	t.Helper()
	d := connect(t)

	place, area := runLabel("Place"), runLabel("Area")
	reg, err := schema.New(
		[]schema.NodeType{
			{Label: place, PrimaryKey: "place_name", Properties: []schema.PropertyDef{
				{Name: "place_name", Type: schema.TypeString},
				{Name: "description", Type: schema.TypeString},
				{Name: schema.EmbedField, Type: schema.TypeFloatList},
			}},
			{Label: area, PrimaryKey: "area_name", Properties: []schema.PropertyDef{
				{Name: "area_name", Type: schema.TypeString},
				{Name: schema.EmbedField, Type: schema.TypeFloatList},
			}},
		},
		[]schema.RelationshipType{
			{Type: "IN_AREA", SourceLabels: []string{place}, TargetLabels: []string{area}},
		},
	)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Embedding.Dimensions = testDimensions
	if mutate != nil {
		mutate(cfg)
	}

	w := core.NewWeaver(d, reg, nil, hashEmbedder{}, cfg, nil)
	ctx := context.Background()
	_, err = w.ApplySchema(ctx)
	require.NoError(t, err)
	_, err = w.ExecuteCypher(ctx, "CALL db.awaitIndexes(60)")
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		for _, label := range []string{place, area} {
			_, _ = w.ExecuteCypher(ctx, fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", schema.QuoteIdentifier(label)))
			dropAll(ctx, w, "CONSTRAINT", "CONSTRAINTS", label)
			dropAll(ctx, w, "INDEX", "INDEXES", label)
		}
		_ = w.Close(ctx)
	})
	return w, place, area
}

// dropAll removes every constraint or index defined on label.
func dropAll(ctx context.Context, w *core.Weaver, kind, plural, label string) {
	rows, err := w.ExecuteCypher(ctx, fmt.Sprintf(
		"SHOW %s YIELD name, labelsOrTypes WHERE '%s' IN labelsOrTypes RETURN name", plural, label))
	if err != nil {
		return
	}
	for _, row := range rows {
		if name, ok := row.Values[0].(string); ok {
			_, _ = w.ExecuteCypher(ctx, fmt.Sprintf("DROP %s %s IF EXISTS", kind, schema.QuoteIdentifier(name)))
		}
	}
}
