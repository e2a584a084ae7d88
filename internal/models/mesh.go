package models

import (
	"fmt"

	"github.com/golang/geo/r3"

	"pointfit/pkg/pointset"
)

// Element is one mesh element given as the ordered node numbers of its
// vertices. Node numbers are 1-based.
type Element struct {
	Nodes []int
}

// Mesh holds node coordinates and the element connectivity that refers to
// them. Registration only moves nodes; elements are carried through as read.
type Mesh struct {
	// Nodes are the current node coordinates.
	Nodes []r3.Vector

	// Reference keeps the node coordinates as loaded, before any
	// registration.
	Reference []r3.Vector

	// Elements may be empty for a bare node cloud.
	Elements []Element
}

// NewMesh builds a mesh and checks that every element refers to an
// existing node.
func NewMesh(nodes []r3.Vector, elements []Element) (*Mesh, error) {
	if err := pointset.Validate(nodes); err != nil {
		return nil, fmt.Errorf("mesh nodes: %w", err)
	}
	for i, e := range elements {
		for _, n := range e.Nodes {
			if n < 1 || n > len(nodes) {
				return nil, fmt.Errorf("element %d refers to node %d, mesh has %d nodes", i+1, n, len(nodes))
			}
		}
	}
	return &Mesh{
		Nodes:     pointset.Clone(nodes),
		Reference: pointset.Clone(nodes),
		Elements:  elements,
	}, nil
}

// UpdateNodes replaces the current node coordinates. The reference
// coordinates are left untouched.
func (m *Mesh) UpdateNodes(nodes []r3.Vector) error {
	if len(nodes) != len(m.Nodes) {
		return fmt.Errorf("%w: mesh has %d nodes, got %d", pointset.ErrDimensionMismatch, len(m.Nodes), len(nodes))
	}
	m.Nodes = pointset.Clone(nodes)
	return nil
}

// Problem names the files describing one fitting problem.
type Problem struct {
	// Data is the scan/data point file the mesh is registered against.
	Data string `yaml:"data"`

	// Nodes is the mesh node coordinate file.
	Nodes string `yaml:"nodes"`

	// Elems is the optional element connectivity file.
	Elems string `yaml:"elems,omitempty"`
}
