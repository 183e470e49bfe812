package milp

import (
	"context"
	"fmt"
	"math"

	"github.com/lukpank/go-glpk/glpk"
)

// GLPKSolver adapts LPModel to the GNU Linear Programming Kit's branch-
// and-cut MIP solver via the cgo binding github.com/lukpank/go-glpk —
// the same cgo-wrapping idiom the teacher uses for its raster/mapnik
// bindings, applied here to the one genuinely new domain dependency this
// module needs: an LP/MIP solver (spec §4.5, §9).
type GLPKSolver struct {
	// MessageLevel silences GLPK's solver log by default; set to
	// glpk.MSG_ALL for verbose diagnostics.
	MessageLevel glpk.MsgLev
}

// NewGLPKSolver returns a GLPKSolver with GLPK's log output suppressed.
func NewGLPKSolver() *GLPKSolver {
	return &GLPKSolver{MessageLevel: glpk.MSG_OFF}
}

func (s *GLPKSolver) Solve(ctx context.Context, model *LPModel) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prob := glpk.New()
	defer prob.Delete()

	prob.SetProbName("occmosaic-selection")
	prob.SetObjDir(glpk.MAX)

	prob.AddCols(model.NumVars)
	for j := 0; j < model.NumVars; j++ {
		col := j + 1
		b := model.VarBound[j]
		prob.SetColKind(col, glpk.BV)
		prob.SetColBnds(col, boundType(b), b.Low, b.High)
		prob.SetObjCoef(col, model.ObjCoef[j])
	}

	prob.AddRows(len(model.Rows))
	for i, row := range model.Rows {
		r := i + 1
		prob.SetRowBnds(r, boundType(row.Bound), row.Bound.Low, row.Bound.High)

		ind := make([]int32, len(row.Terms)+1)
		val := make([]float64, len(row.Terms)+1)
		for k, term := range row.Terms {
			ind[k+1] = int32(term.Var + 1)
			val[k+1] = term.Coef
		}
		prob.SetMatRow(r, ind, val)
	}

	iocp := glpk.NewIocp()
	iocp.SetMsgLev(s.MessageLevel)
	iocp.SetPresolve(true)

	if err := prob.Intopt(iocp); err != nil {
		return &Solution{Status: StatusError}, fmt.Errorf("milp: glpk intopt: %w", err)
	}

	switch prob.MipStatus() {
	case glpk.OPT, glpk.FEAS:
		values := make([]float64, model.NumVars)
		for j := 0; j < model.NumVars; j++ {
			values[j] = prob.MipColVal(j + 1)
		}
		return &Solution{Status: StatusOptimal, ObjValue: prob.MipObjVal(), VarValues: values}, nil
	case glpk.NOFEAS, glpk.UNDEF:
		return &Solution{Status: StatusInfeasible}, nil
	default:
		return &Solution{Status: StatusError}, fmt.Errorf("milp: unexpected glpk mip status %v", prob.MipStatus())
	}
}

func boundType(b Bound) glpk.BndType {
	lowInf := math.IsInf(b.Low, -1)
	highInf := math.IsInf(b.High, 1)
	switch {
	case b.Low == b.High:
		return glpk.FX
	case lowInf && highInf:
		return glpk.FR
	case lowInf:
		return glpk.UP
	case highInf:
		return glpk.LO
	default:
		return glpk.DB
	}
}
