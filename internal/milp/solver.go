package milp

import "context"

// Status is a solver's terminal verdict.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusError
)

// Solution is one solver run's result.
type Solution struct {
	Status    Status
	ObjValue  float64
	VarValues []float64 // 1.0/0.0 per binary variable, index-aligned with LPModel
}

// Solver is the leaf collaborator C5 delegates the actual MILP solve to.
// The model builder in this package has no dependency on any concrete
// Solver — internal/milp/glpksolver.go is the only file that links
// against a real solver library.
type Solver interface {
	Solve(ctx context.Context, model *LPModel) (*Solution, error)
}
