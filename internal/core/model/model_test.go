package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBundle = `{
	"nodes": {
		"ExperientialScene": [
			{"scene_name": "west_lake_evening", "description": "杭州西湖的傍晚", "mood": "calm", "visits": 3}
		],
		"City": [
			{"city_name": "hangzhou"},
			{"name": "unnamed", "rating": 4.5}
		]
	},
	"relationships": {
		"LOCATED_IN_CITY": [
			{
				"id": "rel_1",
				"source_node": {"label": "ExperientialScene", "key": "west_lake_evening"},
				"target_node": {"label": "City", "key": "hangzhou"},
				"properties": {"confidence": 0.9}
			}
		]
	}
}`

func TestParseBundlePreservesOrder(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	require.NoError(t, err)

	require.Len(t, b.Nodes, 2)
	assert.Equal(t, "ExperientialScene", b.Nodes[0].Label)
	assert.Equal(t, "City", b.Nodes[1].Label)
	assert.Equal(t, []string{"scene_name", "description", "mood", "visits"}, b.Nodes[0].Items[0].Keys())
	assert.Equal(t, 3, b.NodeCount())
	assert.Equal(t, 1, b.RelationshipCount())

	visits, ok := b.Nodes[0].Items[0].Get("visits")
	require.True(t, ok)
	assert.Equal(t, KindInt, visits.Kind())

	rating, _ := b.Nodes[1].Items[1].Get("rating")
	assert.Equal(t, KindFloat, rating.Kind())

	edge := b.Relationships[0].Edges[0]
	assert.Equal(t, "rel_1", edge.ID.Text())
	assert.Equal(t, "ExperientialScene", edge.Source.Label)
	assert.Equal(t, "hangzhou", edge.Target.Key.Text())
	conf, _ := edge.Properties.Get("confidence")
	assert.Equal(t, 0.9, conf.Native())
}

func TestParseBundleRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		`not json`,
		`[1,2]`,
		`{"nodes": []}`,
		`{"nodes": {"City": {"city_name": "x"}}}`,
		`{"nodes": {"City": ["x"]}}`,
		`{"relationships": {"R": [1]}}`,
	}
	for _, in := range inputs {
		_, err := ParseBundle([]byte(in))
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidBundle), in)
	}
}

func TestParseBundleEmptySections(t *testing.T) {
	b, err := ParseBundle([]byte(`{}`))
	require.NoError(t, err)
	assert.Zero(t, b.NodeCount())
	assert.Zero(t, b.RelationshipCount())
}

func TestParseBundleMissingEdgeEndpoints(t *testing.T) {
	b, err := ParseBundle([]byte(`{"relationships": {"R": [{"target_node": {"key": 7}}]}}`))
	require.NoError(t, err)
	edge := b.Relationships[0].Edges[0]
	assert.Nil(t, edge.Source)
	require.NotNil(t, edge.Target)
	assert.Equal(t, "", edge.Target.Label)
	assert.Equal(t, "7", edge.Target.Key.Text())
	assert.Equal(t, KindNull, edge.ID.Kind())
}

func TestNestedObjectBecomesJSONText(t *testing.T) {
	m := NewPropertyMap()
	require.NoError(t, json.Unmarshal([]byte(`{"meta": {"b": 1, "a": [1, 2]}}`), m))
	v, _ := m.Get("meta")
	assert.Equal(t, KindString, v.Kind())
	assert.Equal(t, `{"b":1,"a":[1,2]}`, v.Text())
}

func TestFloatArrayBecomesVector(t *testing.T) {
	m := NewPropertyMap()
	require.NoError(t, json.Unmarshal([]byte(`{"embed": [0.1, 0.2], "ints": [1, 2], "tags": ["a", "b"]}`), m))

	embed, _ := m.Get("embed")
	assert.Equal(t, KindVector, embed.Kind())
	assert.Equal(t, []float64{0.1, 0.2}, embed.Native())

	ints, _ := m.Get("ints")
	assert.Equal(t, KindList, ints.Kind())
	assert.Equal(t, []any{int64(1), int64(2)}, ints.Native())

	tags, _ := m.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags.Native())
}

func TestValueIsZero(t *testing.T) {
	assert.True(t, Null().IsZero())
	assert.True(t, String("").IsZero())
	assert.True(t, Int(0).IsZero())
	assert.True(t, Float(0).IsZero())
	assert.True(t, Bool(false).IsZero())
	assert.True(t, List().IsZero())
	assert.True(t, Vector(nil).IsZero())

	assert.False(t, String("x").IsZero())
	assert.False(t, Int(-1).IsZero())
	assert.False(t, Bool(true).IsZero())
	assert.False(t, Vector([]float32{0}).IsZero())
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "abc", String("abc").Text())
	assert.Equal(t, "42", Int(42).Text())
	assert.Equal(t, "1.5", Float(1.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Null().Text())
	assert.Equal(t, `["a",1]`, List(String("a"), Int(1)).Text())
}

func TestPropertyMapSetDeleteClone(t *testing.T) {
	m := NewPropertyMap()
	m.Set("b", Int(1))
	m.Set("a", Int(2))
	m.Set("b", Int(3))
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	c := m.Clone()
	c.Set("c", Bool(true))
	m.Delete("b")

	assert.Equal(t, []string{"a"}, m.Keys())
	assert.Equal(t, []string{"b", "a", "c"}, c.Keys())
	assert.Equal(t, map[string]any{"b": int64(3), "a": int64(2), "c": true}, c.Params())

	var nilMap *PropertyMap
	assert.Zero(t, nilMap.Len())
	assert.False(t, nilMap.Has("x"))
	assert.Empty(t, nilMap.Params())
}

func TestPropertyMapMarshalKeepsOrderAndUnicode(t *testing.T) {
	m := NewPropertyMap()
	m.Set("z", String("西湖 <evening>"))
	m.Set("a", Float(0.5))
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":"西湖 <evening>","a":0.5}`, string(data))
}

func TestBundleRoundTripIndented(t *testing.T) {
	b, err := ParseBundle([]byte(sampleBundle))
	require.NoError(t, err)

	out := b.Indented()
	assert.True(t, strings.HasPrefix(out, "{\n  \"nodes\": {"))
	assert.Contains(t, out, "杭州西湖的傍晚")

	again, err := ParseBundle([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, b.NodeCount(), again.NodeCount())
	assert.Equal(t, "rel_1", again.Relationships[0].Edges[0].ID.Text())
}

func TestImportReportString(t *testing.T) {
	r := &ImportReport{
		NodesWritten:         2,
		RelationshipsWritten: 1,
		ImportedNodeRefs:     []string{"City(city_name: hangzhou)", "Season(id: abc)"},
		ImportedRelRefs:      []string{"ExperientialScene(west_lake)-[:LOCATED_IN_CITY]->City(hangzhou)"},
	}

	want := strings.Join([]string{
		"Graph data imported successfully!",
		"Created/Updated 2 nodes",
		"Created 1 relationships",
		"",
		"Imported Nodes:",
		"  - City(city_name: hangzhou)",
		"  - Season(id: abc)",
		"",
		"Imported Relationships:",
		"  - ExperientialScene(west_lake)-[:LOCATED_IN_CITY]->City(hangzhou)",
	}, "\n")
	assert.Equal(t, want, r.String())
}

func TestImportReportStringEmpty(t *testing.T) {
	r := &ImportReport{}
	assert.Equal(t, "Graph data imported successfully!\nCreated/Updated 0 nodes\nCreated 0 relationships\n", r.String())
}

func TestImportReportStringWithSkipped(t *testing.T) {
	r := &ImportReport{Errors: []string{"R: missing source label"}}
	assert.True(t, strings.HasSuffix(r.String(), "\nSkipped Relationships:\n  - R: missing source label"))
}

func TestStripEmbed(t *testing.T) {
	in := map[string]any{"name": "x", "embed": []float64{1}}
	out := StripEmbed(in)
	assert.Equal(t, map[string]any{"name": "x"}, out)
	assert.Contains(t, in, "embed")
}
