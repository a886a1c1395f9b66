package pdg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "nodes": [
    {"id": 0, "type": "Program", "ast_size": 10, "snippet": "var a = 1;", "start": 0, "end": 10},
    {"id": 1, "type": "ExpressionStatement", "ast_size": 4}
  ],
  "edges": [
    {"src": 0, "dst": 1, "type": "control"},
    {"src": 1, "dst": 0}
  ]
}`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, 10, doc.Nodes[0].AstSize)
	require.NotNil(t, doc.Nodes[0].End)
	assert.Equal(t, 10, *doc.Nodes[0].End)
	assert.Nil(t, doc.Nodes[1].Start)

	assert.Equal(t, Control, doc.Edges[0].Kind())
	assert.Equal(t, Data, doc.Edges[1].Kind(), "missing edge type defaults to data")
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{"nodes": [`},
		{"negative ast size", `{"nodes": [{"id": 1, "ast_size": -3}]}`},
		{"negative id", `{"nodes": [{"id": -1, "ast_size": 3}]}`},
		{"id above uint32", `{"nodes": [{"id": 4294967296, "ast_size": 3}]}`},
		{"duplicate id", `{"nodes": [{"id": 1}, {"id": 1}]}`},
		{"negative offset", `{"nodes": [{"id": 1, "start": -5}]}`},
		{"missing id", `{"nodes": [{"type": "x", "ast_size": 3}]}`},
		{"null id", `{"nodes": [{"id": null, "ast_size": 3}]}`},
		{"trailing garbage", `{"nodes": [{"id": 1}]} garbage`},
		{"second document", `{"nodes": []} {"nodes": []}`},
		{"null document", `null`},
		{"empty input", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEdgeWithoutEndpoint(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{
  "nodes": [{"id": 0}, {"id": 5}],
  "edges": [{"dst": 5, "type": "control"}, {"src": 0}, {"src": 0, "dst": 5}]
}`))
	require.NoError(t, err)
	require.Len(t, doc.Edges, 3)

	_, _, ok := doc.Edges[0].Endpoints()
	assert.False(t, ok)
	_, _, ok = doc.Edges[1].Endpoints()
	assert.False(t, ok)

	src, dst, ok := doc.Edges[2].Endpoints()
	assert.True(t, ok)
	assert.Equal(t, 0, src)
	assert.Equal(t, 5, dst)
}

func TestDecodeAllowsTrailingWhitespace(t *testing.T) {
	doc, err := Decode(strings.NewReader("{\"nodes\": [{\"id\": 3}]}\n\n"))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, 3, doc.Nodes[0].ID)
}

func TestUnknownEdgeKindIsData(t *testing.T) {
	e := NewEdge(1, 2, "call")
	assert.Equal(t, Data, e.Kind())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
