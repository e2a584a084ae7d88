// Package solver implements a Levenberg-Marquardt minimiser for nonlinear
// least-squares problems of the form
//
//	minimise  Σ f_i(x)²
//
// where f is a vector-valued residual function with no analytic Jacobian.
// The Jacobian is estimated by central differences with a step relative to
// the magnitude of each parameter.
//
// The solver never reports slow or failed convergence as an error: it
// always returns the best parameter vector found, together with a Status
// describing why iteration stopped. Errors are reserved for malformed
// input detected before any evaluation.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Default tolerances. DefaultFTol equals the square root and DefaultStep
// the cube root of the float64 machine epsilon.
const (
	DefaultXTol = 1e-5
	DefaultFTol = 1.4901161193847656e-08
	DefaultStep = 6.0554544523933395e-06
)

// sqrtEps is the square root of the float64 machine epsilon. Jacobian
// columns no larger than sqrtEps times the largest column carry no
// information beyond rounding.
const sqrtEps = 1.4901161193847656e-08

// Func evaluates the residual vector at x and writes it into dst. len(dst)
// is fixed for a problem.
type Func func(dst, x []float64)

// Recorder is called after every accepted step with the iteration number,
// the number of residual evaluations so far and the current cost.
type Recorder func(iteration, evaluations int, cost float64)

// Settings controls termination of Minimize. The zero value selects the
// defaults.
type Settings struct {
	// XTol is the relative change in the scaled parameter vector below which
	// iteration stops. Zero selects DefaultXTol.
	XTol float64

	// FTol is the relative reduction in the sum of squares, both actual and
	// predicted, below which iteration stops. Zero selects DefaultFTol.
	FTol float64

	// MaxFev bounds the number of residual evaluations, including the 2n
	// spent on each Jacobian estimate. Zero selects 200·(n+1).
	MaxFev int

	// Step is the central-difference step relative to max(|x_j|, 1). Zero
	// selects DefaultStep.
	Step float64

	// Recorder, when set, observes progress.
	Recorder Recorder
}

// Status describes why Minimize returned.
type Status int

const (
	// XTolConvergence: the scaled step fell below XTol.
	XTolConvergence Status = iota + 1
	// FTolConvergence: the relative cost reduction fell below FTol.
	FTolConvergence
	// GradientConvergence: the gradient vanished.
	GradientConvergence
	// ZeroResidual: the residual vector is exactly zero.
	ZeroResidual
	// EvaluationLimit: MaxFev evaluations were spent.
	EvaluationLimit
	// Stalled: the damping grew without bound and no step could be taken.
	Stalled
)

func (s Status) String() string {
	switch s {
	case XTolConvergence:
		return "xtol convergence"
	case FTolConvergence:
		return "ftol convergence"
	case GradientConvergence:
		return "gradient convergence"
	case ZeroResidual:
		return "zero residual"
	case EvaluationLimit:
		return "evaluation limit reached"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Converged reports whether the status is one of the tolerance tests rather
// than budget exhaustion.
func (s Status) Converged() bool {
	return s >= XTolConvergence && s <= ZeroResidual
}

// Result holds the outcome of a minimisation.
type Result struct {
	// X is the best parameter vector found.
	X []float64

	// Cost is Σ f_i(X)².
	Cost float64

	// Iterations counts Jacobian evaluations.
	Iterations int

	// Evaluations counts residual evaluations.
	Evaluations int

	Status Status
}

// ErrInvalidProblem is returned for problems with no parameters or no
// residuals.
var ErrInvalidProblem = errors.New("invalid least-squares problem")

// Minimize minimises Σ f_i(x)² starting from x0, where f produces m
// residuals. settings may be nil.
func Minimize(f Func, m int, x0 []float64, settings *Settings) (*Result, error) {
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("%w: no parameters", ErrInvalidProblem)
	}
	if m <= 0 {
		return nil, fmt.Errorf("%w: no residuals", ErrInvalidProblem)
	}

	s := withDefaults(settings, n)
	lm := &levmar{f: f, m: m, n: n, settings: s}
	return lm.run(x0), nil
}

func withDefaults(settings *Settings, n int) Settings {
	var s Settings
	if settings != nil {
		s = *settings
	}
	if s.XTol <= 0 {
		s.XTol = DefaultXTol
	}
	if s.FTol <= 0 {
		s.FTol = DefaultFTol
	}
	if s.MaxFev <= 0 {
		s.MaxFev = 200 * (n + 1)
	}
	if s.Step <= 0 {
		s.Step = DefaultStep
	}
	return s
}

// levmar holds the working state of one minimisation.
type levmar struct {
	f        Func
	m, n     int
	settings Settings

	evals int
}

func (lm *levmar) eval(dst, x []float64) {
	lm.f(dst, x)
	lm.evals++
}

func (lm *levmar) run(x0 []float64) *Result {
	m, n := lm.m, lm.n

	x := make([]float64, n)
	copy(x, x0)
	r := make([]float64, m)
	lm.eval(r, x)
	cost := floats.Dot(r, r)

	res := &Result{X: x, Cost: cost}
	if cost == 0 {
		res.Status = ZeroResidual
		res.Evaluations = lm.evals
		return res
	}

	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	grad := mat.NewVecDense(n, nil)
	negGrad := mat.NewVecDense(n, nil)
	damped := mat.NewSymDense(n, nil)
	step := mat.NewVecDense(n, nil)
	jtjStep := mat.NewVecDense(n, nil)

	xTrial := make([]float64, n)
	rTrial := make([]float64, m)
	diag := make([]float64, n)
	scaled := make([]float64, n)
	steps := make([]float64, n)

	var mu float64
	nu := 2.0
	first := true

	for {
		if lm.evals+2*n > lm.settings.MaxFev {
			return lm.finish(res, EvaluationLimit)
		}

		lm.jacobian(jac, x, steps, xTrial)
		res.Iterations++

		// Marquardt scaling: running maximum of the column norms. Columns
		// that carry nothing beyond rounding on the first iteration are
		// scaled like the largest column so their damping matches the
		// problem's magnitude.
		colMax := 0.0
		for j := 0; j < n; j++ {
			norm := floats.Norm(mat.Col(nil, j, jac), 2)
			scaled[j] = norm
			colMax = math.Max(colMax, norm)
		}
		for j := 0; j < n; j++ {
			switch {
			case first && scaled[j] > sqrtEps*colMax:
				diag[j] = scaled[j]
			case first:
				diag[j] = colMax
				if diag[j] == 0 {
					diag[j] = 1
				}
			default:
				diag[j] = math.Max(diag[j], scaled[j])
			}
		}

		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))
		if mat.Norm(grad, math.Inf(1)) == 0 {
			return lm.finish(res, GradientConvergence)
		}
		negGrad.ScaleVec(-1, grad)

		if first {
			maxRatio := 0.0
			for j := 0; j < n; j++ {
				maxRatio = math.Max(maxRatio, jtj.At(j, j)/(diag[j]*diag[j]))
			}
			mu = 1e-3 * maxRatio
			if mu == 0 {
				mu = 1e-3
			}
			first = false
		}

		// Inner loop: adjust the damping until a step reduces the cost.
		for {
			if lm.evals >= lm.settings.MaxFev {
				return lm.finish(res, EvaluationLimit)
			}
			if math.IsInf(mu, 0) || math.IsNaN(mu) {
				return lm.finish(res, Stalled)
			}

			damped.CopySym(&jtj)
			for j := 0; j < n; j++ {
				damped.SetSym(j, j, jtj.At(j, j)+mu*diag[j]*diag[j])
			}

			var chol mat.Cholesky
			if ok := chol.Factorize(damped); !ok {
				mu *= nu
				nu *= 2
				continue
			}
			if err := chol.SolveVecTo(step, negGrad); err != nil {
				mu *= nu
				nu *= 2
				continue
			}

			for j := 0; j < n; j++ {
				xTrial[j] = x[j] + step.AtVec(j)
			}
			lm.eval(rTrial, xTrial)
			trialCost := floats.Dot(rTrial, rTrial)

			// Reduction predicted by the linear model: -(2·δᵀg + δᵀ·JᵀJ·δ)
			jtjStep.MulVec(&jtj, step)
			predicted := -(2*mat.Dot(step, grad) + mat.Dot(step, jtjStep))

			stepNorm, xNorm := scaledNorms(diag, step, x)
			small := stepNorm <= lm.settings.XTol*(xNorm+lm.settings.XTol)

			if trialCost < cost {
				rho := 0.0
				if predicted > 0 {
					rho = (cost - trialCost) / predicted
				}
				flat := cost-trialCost <= lm.settings.FTol*cost && predicted <= lm.settings.FTol*cost

				copy(x, xTrial)
				copy(r, rTrial)
				cost = trialCost
				res.Cost = cost

				mu *= math.Max(1.0/3, 1-math.Pow(2*rho-1, 3))
				nu = 2

				if lm.settings.Recorder != nil {
					lm.settings.Recorder(res.Iterations, lm.evals, cost)
				}

				switch {
				case cost == 0:
					return lm.finish(res, ZeroResidual)
				case small:
					return lm.finish(res, XTolConvergence)
				case flat:
					return lm.finish(res, FTolConvergence)
				}
				break
			}

			mu *= nu
			nu *= 2
			if small {
				return lm.finish(res, XTolConvergence)
			}
		}
	}
}

// jacobian estimates ∂f/∂x at x into jac. fd.Jacobian takes a single step,
// so it differentiates g(u) = f(x + steps⊙u) at u = 0 and the columns are
// divided by steps afterwards. work is scratch space of length n.
func (lm *levmar) jacobian(jac *mat.Dense, x, steps, work []float64) {
	for j, v := range x {
		steps[j] = math.Max(math.Abs(v), 1)
	}
	g := func(dst, u []float64) {
		for j := range work {
			work[j] = x[j] + steps[j]*u[j]
		}
		lm.f(dst, work)
	}
	fd.Jacobian(jac, g, make([]float64, len(x)), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    lm.settings.Step,
	})
	lm.evals += 2 * len(x)

	m, _ := jac.Dims()
	for j, s := range steps {
		for i := 0; i < m; i++ {
			jac.Set(i, j, jac.At(i, j)/s)
		}
	}
}

func (lm *levmar) finish(res *Result, status Status) *Result {
	res.Status = status
	res.Evaluations = lm.evals
	return res
}

// scaledNorms returns ‖D·δ‖ and ‖D·x‖.
func scaledNorms(diag []float64, step *mat.VecDense, x []float64) (float64, float64) {
	var sn, xn float64
	for j, d := range diag {
		sd := d * step.AtVec(j)
		xd := d * x[j]
		sn += sd * sd
		xn += xd * xd
	}
	return math.Sqrt(sn), math.Sqrt(xn)
}
