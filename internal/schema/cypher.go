package schema

import (
	"fmt"
	"strings"
)

// DefaultVectorDimensions matches the embedding model deployed by default.
const DefaultVectorDimensions = 1024

// QuoteIdentifier renders name as a backtick-quoted Cypher identifier.
// Labels, relationship types and property keys cannot be bound as parameters.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// BootstrapStatements returns the DDL that creates constraints and indexes
// for every registered type. Lines starting with "//" describe allowed
// relationship endpoints and are not meant to be executed.
func (r *Registry) BootstrapStatements(dimensions int) []string {
	if dimensions <= 0 {
		dimensions = DefaultVectorDimensions
	}

	var stmts []string
	for _, n := range r.nodes {
		label := QuoteIdentifier(n.Label)
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			label, QuoteIdentifier(n.PrimaryKey)))

		for _, p := range n.Properties {
			if p.Name == n.PrimaryKey {
				// covered by the uniqueness constraint's backing index
				continue
			}
			if p.Name == EmbedField && p.Type == TypeFloatList {
				stmts = append(stmts, fmt.Sprintf(
					"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
						"OPTIONS { indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'} }",
					VectorIndexName(n.Label), label, QuoteIdentifier(p.Name), dimensions))
				continue
			}
			stmts = append(stmts, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.%s)", label, QuoteIdentifier(p.Name)))
		}
	}

	for _, rel := range r.rels {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR ()-[r:%s]-() REQUIRE r.%s IS UNIQUE",
			QuoteIdentifier(rel.Type), QuoteIdentifier(rel.PrimaryKey)))
		for _, s := range rel.SourceLabels {
			for _, t := range rel.TargetLabels {
				stmts = append(stmts, fmt.Sprintf("// Relationship %s is allowed from %s to %s", rel.Type, s, t))
			}
		}
	}
	return stmts
}
