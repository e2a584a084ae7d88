package pointio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"pointfit/internal/models"
)

// ErrIncompleteProblem is returned by LoadProblem when the data or nodes
// entry is missing.
var ErrIncompleteProblem = errors.New("problem file must name data and nodes")

// LoadProblem reads a problem file. JSON problem files are accepted as
// YAML. Relative paths inside the file are resolved against the file's
// directory.
func LoadProblem(path string) (*models.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading problem file: %w", err)
	}

	var p models.Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("error parsing problem file: %w", err)
	}
	if p.Data == "" || p.Nodes == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrIncompleteProblem)
	}

	dir := filepath.Dir(path)
	p.Data = resolve(dir, p.Data)
	p.Nodes = resolve(dir, p.Nodes)
	if p.Elems != "" {
		p.Elems = resolve(dir, p.Elems)
	}
	return &p, nil
}

// SaveProblem writes p to path. Paths are stored relative to the problem
// file's directory where possible.
func SaveProblem(path string, p *models.Problem) error {
	dir := filepath.Dir(path)
	out := models.Problem{
		Data:  relative(dir, p.Data),
		Nodes: relative(dir, p.Nodes),
	}
	if p.Elems != "" {
		out.Elems = relative(dir, p.Elems)
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("error marshaling problem: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating problem directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing problem file: %w", err)
	}
	return nil
}

// LoadMesh reads the mesh and data points a problem names.
func LoadMesh(p *models.Problem) (*models.Mesh, []r3.Vector, error) {
	nodes, err := ReadPoints(p.Nodes)
	if err != nil {
		return nil, nil, err
	}

	var elems []models.Element
	if p.Elems != "" {
		if elems, err = ReadElements(p.Elems); err != nil {
			return nil, nil, err
		}
	}

	mesh, err := models.NewMesh(nodes, elems)
	if err != nil {
		return nil, nil, err
	}

	data, err := ReadPoints(p.Data)
	if err != nil {
		return nil, nil, err
	}
	return mesh, data, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func relative(dir, path string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return path
	}
	return rel
}
