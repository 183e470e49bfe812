package milp

import (
	"context"
	"testing"

	"github.com/Delevati/occmosaic/internal/types"
	"github.com/stretchr/testify/require"
)

type fakeSolver struct {
	values []float64
	status Status
}

func (f *fakeSolver) Solve(ctx context.Context, model *LPModel) (*Solution, error) {
	return &Solution{Status: f.status, VarValues: f.values, ObjValue: 42}, nil
}

func TestSelect_PicksMosaicsWithValueOne(t *testing.T) {
	m1 := mosaic("m1", 0.5, 1, 0.1, "a.zip")
	m2 := mosaic("m2", 0.5, 1, 0.1, "b.zip")

	solver := &fakeSolver{values: []float64{1, 0}, status: StatusOptimal}
	result, err := Select(context.Background(), []*types.MosaicCandidate{m1, m2}, DefaultOptions(), solver)
	require.NoError(t, err)
	require.Len(t, result.Selected, 1)
	require.Equal(t, "m1", result.Selected[0].GroupID)
	require.Equal(t, 42.0, result.ObjectiveValue)
}

func TestSelect_InfeasibleReturnsEmptyResult(t *testing.T) {
	m1 := mosaic("m1", 0.5, 1, 0.1, "a.zip")
	solver := &fakeSolver{status: StatusInfeasible}
	result, err := Select(context.Background(), []*types.MosaicCandidate{m1}, DefaultOptions(), solver)
	require.NoError(t, err)
	require.Empty(t, result.Selected)
}

func TestSelect_SolverErrorPropagates(t *testing.T) {
	m1 := mosaic("m1", 0.5, 1, 0.1, "a.zip")
	solver := &fakeSolver{status: StatusError}
	_, err := Select(context.Background(), []*types.MosaicCandidate{m1}, DefaultOptions(), solver)
	require.Error(t, err)
}
