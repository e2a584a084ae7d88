package registration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"pointfit/internal/models"
	"pointfit/pkg/pointio"
	"pointfit/pkg/transform"
	"pointfit/pkg/visualization"
)

// NoMirror disables mirroring of the fixed set.
const NoMirror = -1

// Params holds the file-level configuration of a registration run.
type Params struct {
	// ProblemFile names a problem file whose nodes are the moving set and
	// whose data points are the fixed set. When set, MovingFile and
	// FixedFile are ignored.
	ProblemFile string

	// MovingFile and FixedFile are point files.
	MovingFile string
	FixedFile  string

	// OutputFile receives the registered moving points.
	OutputFile string

	// ParamsFile, when set, receives a YAML report of the fitted transform.
	ParamsFile string

	// ProblemOutFile, when set, receives a problem file naming the
	// registered nodes next to the input data and elements.
	ProblemOutFile string

	// Options controls the registration itself.
	Options Options

	// TwoStage solves for translation alone before the configured stages.
	TwoStage bool

	// MirrorAxis reflects the fixed set before registration
	// (0: yz, 1: xz, 2: xy). NoMirror disables it.
	MirrorAxis int

	// MirrorAboutCentroid reflects about the fixed set's centroid instead
	// of the origin.
	MirrorAboutCentroid bool

	// RowConvention selects the bottom row of the reported matrix.
	RowConvention transform.RowConvention

	// PreviewDir, when set, receives projection images of the result.
	PreviewDir string

	// Verbose prints progress.
	Verbose bool
}

// Report is the YAML document written to Params.ParamsFile.
type Report struct {
	Stages      string      `yaml:"stages"`
	Direction   string      `yaml:"direction"`
	Vector      []float64   `yaml:"vector,flow"`
	Translation []float64   `yaml:"translation,flow"`
	Rotation    []float64   `yaml:"rotation,flow"`
	Scale       []float64   `yaml:"scale,flow"`
	Matrix      [][]float64 `yaml:"matrix,flow"`
	Status      string      `yaml:"status"`
	Iterations  int         `yaml:"iterations"`
	Evaluations int         `yaml:"evaluations"`
	RMSE        float64     `yaml:"rmse"`
	InitialRMSE float64     `yaml:"initialRmse"`
	MaxDistance float64     `yaml:"maxDistance"`
}

// Registrar runs a registration from files to files:
// 1. Loading the moving and fixed sets (or a problem)
// 2. Mirroring the fixed set when requested
// 3. Registering
// 4. Writing the registered points, the transform report and the problem
// 5. Rendering previews
type Registrar struct {
	// params stores the run configuration
	params *Params

	// moving and fixed are the loaded point sets, fixed after mirroring
	moving []r3.Vector
	fixed  []r3.Vector

	// mesh is set when the moving set came from a problem file
	mesh    *models.Mesh
	problem *models.Problem

	// result is set once registration has run
	result *Result
}

// NewRegistrar creates a new registrar with the provided parameters.
func NewRegistrar(params *Params) *Registrar {
	return &Registrar{params: params}
}

func (r *Registrar) logf(format string, args ...interface{}) {
	if r.params.Verbose {
		fmt.Printf(format, args...)
	}
}

// Process runs the complete pipeline.
func (r *Registrar) Process() error {
	r.logf("Step 1: Loading point sets...\n")
	if err := r.load(); err != nil {
		return fmt.Errorf("failed to load point sets: %w", err)
	}
	r.logf("Loaded %d moving and %d fixed points\n", len(r.moving), len(r.fixed))

	if r.params.MirrorAxis != NoMirror {
		r.logf("Step 2: Mirroring fixed points about axis %d...\n", r.params.MirrorAxis)
		mirrored, err := transform.Mirror(r.fixed, r.params.MirrorAxis, r.params.MirrorAboutCentroid)
		if err != nil {
			return fmt.Errorf("failed to mirror fixed points: %w", err)
		}
		r.fixed = mirrored
	}

	opts := r.params.Options
	r.logf("Step 3: Registering (%s, %s)...\n", opts.Stages, opts.Direction)
	if opts.Progress == nil && r.params.Verbose {
		opts.Progress = func(iteration, evaluations int, cost float64) {
			fmt.Printf("  iteration %d: %d evaluations, cost %.6g\n", iteration, evaluations, cost)
		}
	}

	register := Register
	if r.params.TwoStage {
		register = RegisterTwoStage
	}
	res, err := register(r.moving, r.fixed, opts)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	r.result = res
	r.logf("Solver stopped: %s after %d evaluations\n", res.Solver.Status, res.Solver.Evaluations)
	r.logf("RMSE %.6g (initial %.6g)\n", res.Metrics.RMSE, res.Metrics.InitialRMSE)

	if r.mesh != nil {
		if err := r.mesh.UpdateNodes(res.Points); err != nil {
			return err
		}
	}

	r.logf("Step 4: Writing results...\n")
	if err := r.write(); err != nil {
		return err
	}

	if r.params.PreviewDir != "" {
		r.logf("Step 5: Rendering previews to %s...\n", r.params.PreviewDir)
		preview := visualization.NewPreview(r.fixed, r.moving, res.Points)
		if err := preview.SaveProjections(r.params.PreviewDir); err != nil {
			// previews are not part of the result
			fmt.Printf("Warning: Failed to save previews: %v\n", err)
		}
	}

	return nil
}

func (r *Registrar) load() error {
	if r.params.ProblemFile != "" {
		problem, err := pointio.LoadProblem(r.params.ProblemFile)
		if err != nil {
			return err
		}
		mesh, data, err := pointio.LoadMesh(problem)
		if err != nil {
			return err
		}
		r.problem, r.mesh = problem, mesh
		r.moving, r.fixed = mesh.Nodes, data
		return nil
	}

	if r.params.MovingFile == "" || r.params.FixedFile == "" {
		return fmt.Errorf("moving and fixed point files are required without a problem file")
	}
	moving, err := pointio.ReadPoints(r.params.MovingFile)
	if err != nil {
		return err
	}
	fixed, err := pointio.ReadPoints(r.params.FixedFile)
	if err != nil {
		return err
	}
	r.moving, r.fixed = moving, fixed
	return nil
}

func (r *Registrar) write() error {
	if r.params.OutputFile != "" {
		if err := pointio.WritePoints(r.params.OutputFile, r.result.Points); err != nil {
			return fmt.Errorf("failed to write registered points: %w", err)
		}
		r.logf("Registered points written to %s\n", r.params.OutputFile)
	}

	if r.params.ParamsFile != "" {
		if err := r.writeReport(); err != nil {
			return fmt.Errorf("failed to write transform report: %w", err)
		}
		r.logf("Transform written to %s\n", r.params.ParamsFile)
	}

	if r.params.ProblemOutFile != "" {
		if r.problem == nil || r.params.OutputFile == "" {
			return fmt.Errorf("a problem file can only be written for a problem run with an output file")
		}
		out := &models.Problem{Data: r.problem.Data, Nodes: r.params.OutputFile, Elems: r.problem.Elems}
		if err := pointio.SaveProblem(r.params.ProblemOutFile, out); err != nil {
			return err
		}
	}

	return nil
}

// BuildReport summarises a result for serialisation.
func BuildReport(res *Result, direction Direction, row transform.RowConvention) Report {
	m := res.Params.Matrix(row)
	rows, _ := m.Dims()
	matrix := make([][]float64, rows)
	for i := range matrix {
		matrix[i] = mat.Row(nil, i, m)
	}

	p := res.Params
	return Report{
		Stages:      res.Stages.String(),
		Direction:   direction.String(),
		Vector:      res.Vector(),
		Translation: []float64{p.Translation.X, p.Translation.Y, p.Translation.Z},
		Rotation:    []float64{p.Rotation.X, p.Rotation.Y, p.Rotation.Z},
		Scale:       []float64{p.Scale.X, p.Scale.Y, p.Scale.Z},
		Matrix:      matrix,
		Status:      res.Solver.Status.String(),
		Iterations:  res.Solver.Iterations,
		Evaluations: res.Solver.Evaluations,
		RMSE:        res.Metrics.RMSE,
		InitialRMSE: res.Metrics.InitialRMSE,
		MaxDistance: res.Metrics.MaxDistance,
	}
}

func (r *Registrar) writeReport() error {
	report := BuildReport(r.result, r.params.Options.Direction, r.params.RowConvention)
	data, err := yaml.Marshal(&report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.params.ParamsFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(r.params.ParamsFile, data, 0644)
}

// GetResult returns the registration result, or nil before Process has
// succeeded.
func (r *Registrar) GetResult() *Result {
	return r.result
}

// GetMesh returns the registered mesh of a problem run, or nil.
func (r *Registrar) GetMesh() *models.Mesh {
	return r.mesh
}
