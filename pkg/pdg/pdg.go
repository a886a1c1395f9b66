// Package pdg holds the program dependence graph document consumed by the
// partitioner.
package pdg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-playground/validator"

	"github.com/pdg-curator/pkg/graphio"
)

var ErrMalformed = errors.New("malformed PDG")

type EdgeKind string

const (
	Control EdgeKind = "control"
	Data    EdgeKind = "data"
)

type Node struct {
	ID      int    `json:"id" validate:"min=0"`
	Type    string `json:"type"`
	AstSize int    `json:"ast_size" validate:"min=0"`
	Snippet string `json:"snippet,omitempty"`
	Start   *int   `json:"start,omitempty" validate:"omitempty,min=0"`
	End     *int   `json:"end,omitempty" validate:"omitempty,min=0"`
}

// UnmarshalJSON rejects nodes without an id.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var raw struct {
		plain
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == nil {
		return errors.New("node without id")
	}
	*n = Node(raw.plain)
	n.ID = *raw.ID
	return nil
}

// Edge endpoints are pointers so that a record without src or dst stays
// distinguishable from one naming node 0.
type Edge struct {
	Src  *int     `json:"src"`
	Dst  *int     `json:"dst"`
	Type EdgeKind `json:"type"`
}

func NewEdge(src, dst int, kind EdgeKind) Edge {
	return Edge{Src: &src, Dst: &dst, Type: kind}
}

// Endpoints returns both endpoint ids; ok is false when either is missing.
func (e Edge) Endpoints() (src, dst int, ok bool) {
	if e.Src == nil || e.Dst == nil {
		return 0, 0, false
	}
	return *e.Src, *e.Dst, true
}

// Kind normalizes the edge type. Anything that is not a control dependency
// is weighted as data.
func (e Edge) Kind() EdgeKind {
	if e.Type == Control {
		return Control
	}
	return Data
}

type Document struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Edges []Edge `json:"edges"`
}

var validate = validator.New()

// Decode parses and validates a PDG document. The input must hold exactly
// one JSON object. Edge endpoints are not checked here; dangling edges are
// the graph builder's concern.
func Decode(r io.Reader) (*Document, error) {
	var doc *Document
	if err := graphio.DecodeJSON(r, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformed)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	seen := make(map[int]struct{}, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID < 0 || uint64(n.ID) > math.MaxUint32 {
			return fmt.Errorf("%w: node %d: id %d out of range", ErrMalformed, i, n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrMalformed, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

func Load(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDG %s: %w", path, err)
	}
	defer file.Close()

	doc, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDG %s: %w", path, err)
	}
	return doc, nil
}
