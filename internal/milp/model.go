// Package milp implements C5, the MILP model builder and selector (spec
// §4.5). The model-assembly code here has zero solver-specific imports —
// it builds a solver-agnostic LPModel that any Solver implementation can
// consume; internal/milp/glpksolver.go is the one package that actually
// links against a solver.
package milp

import (
	"math"
	"sort"

	"github.com/Delevati/occmosaic/internal/types"
)

// IjkVariant selects which of spec §4.5's two admissible Iⱼₖ definitions
// is active.
type IjkVariant int

const (
	// IjkConservative is variant (a): min(Aⱼ, Aₖ).
	IjkConservative IjkVariant = iota
	// IjkSharedImageRatio is variant (b): an area- and shared-tile-ratio
	// weighted estimate.
	IjkSharedImageRatio
)

// ConstraintVariant selects which of spec §4.5's two admissible
// formulations of constraint 4 is active.
type ConstraintVariant int

const (
	// PairDisjunction is the plain yⱼ + yₖ ≤ 1 rule gated on Iⱼₖ < θ.
	PairDisjunction ConstraintVariant = iota
	// LinearizedCoverageFloor introduces linking variables oⱼₖ and a
	// global coverage-floor constraint instead.
	LinearizedCoverageFloor
)

// Tunable constants, spec §4.5.
const (
	CloudMax     = 0.40
	KMax         = 6
	ThetaOverlap = 0.80
	Gamma        = 3.7
	Alpha        = 0.4
	CMin         = 0.85
)

// Options configures model assembly. Implementations MUST record which
// IjkVariant and ConstraintVariant are active (spec §4.5); DESIGN.md
// records the defaults chosen here.
type Options struct {
	IjkVariant        IjkVariant
	ConstraintVariant ConstraintVariant
	AOIArea           float64 // area(AOI) in AOI-CRS units; required by variant (b)
}

// DefaultOptions is the variant combination this module ships: the
// conservative min(Aⱼ,Aₖ) overlap estimate paired with the plain
// pair-disjunction constraint — the cheaper model to hand to a generic
// MILP solver for the default case, per spec §9.
func DefaultOptions() Options {
	return Options{IjkVariant: IjkConservative, ConstraintVariant: PairDisjunction}
}

// Term is one nonzero coefficient of a constraint row.
type Term struct {
	Var   int
	Coef  float64
}

// Bound is an inclusive [Low, High] range; use math.Inf(±1) for an
// unbounded side.
type Bound struct {
	Low, High float64
}

func fixed(v float64) Bound   { return Bound{v, v} }
func binaryBound() Bound      { return Bound{0, 1} }
func atMost(v float64) Bound  { return Bound{math.Inf(-1), v} }
func atLeast(v float64) Bound { return Bound{v, math.Inf(1)} }

// Row is one linear constraint: Low ≤ Σ Terms ≤ High.
type Row struct {
	Terms []Term
	Bound Bound
}

// LPModel is the solver-agnostic MILP: maximize Σ ObjCoef·x subject to
// VarBound[i] ≤ x[i] ≤ VarBound[i] (all binary here) and every Row.
type LPModel struct {
	NumVars   int
	ObjCoef   []float64
	VarBound  []Bound
	Integer   []bool
	Rows      []Row
}

// BuildResult is what BuildModel hands back alongside the LPModel: the
// mosaic each variable index 0..M-1 corresponds to (in GroupID-ascending
// order), plus the Iⱼₖ table the witness pass reads.
type BuildResult struct {
	Model     *LPModel
	Mosaics   []*types.MosaicCandidate // index i ↔ variable i
	PairIjk   map[[2]int]float64       // (j,k) with j<k ↔ Iⱼₖ
	Variant   Options
}

// BuildModel assembles spec §4.5's MILP for candidates. Candidates are
// first sorted by GroupID ascending so variable indices (and therefore
// the solver's tie-breaking behavior) are deterministic across runs.
func BuildModel(candidates []*types.MosaicCandidate, opts Options) *BuildResult {
	mosaics := make([]*types.MosaicCandidate, len(candidates))
	copy(mosaics, candidates)
	sort.SliceStable(mosaics, func(i, j int) bool { return mosaics[i].GroupID < mosaics[j].GroupID })

	m := len(mosaics)
	pairIjk := make(map[[2]int]float64)

	model := &LPModel{
		NumVars:  m,
		ObjCoef:  make([]float64, m),
		VarBound: make([]Bound, m),
		Integer:  make([]bool, m),
	}

	tileIndex := make(map[string][]int) // tile filename -> mosaic variable indices containing it

	for j, mosaic := range mosaics {
		A := mosaic.PieCoverageRatio
		Q := mosaic.AvgQualityFactor
		if Q == 0 {
			Q = 1 // spec §4.5: "quality Qⱼ = avg_quality_factor (default 1)"
		}
		N := mosaic.MaxCloudCoverage()

		model.ObjCoef[j] = A*Q - Gamma*N
		model.Integer[j] = true
		model.VarBound[j] = binaryBound()

		// Constraint 1: cloud veto.
		if N > CloudMax {
			model.VarBound[j] = fixed(0)
		}

		for _, t := range mosaic.Images {
			tileIndex[t.Filename] = append(tileIndex[t.Filename], j)
		}
	}

	// Constraint 2: cardinality.
	cardTerms := make([]Term, m)
	for j := 0; j < m; j++ {
		cardTerms[j] = Term{Var: j, Coef: 1}
	}
	model.Rows = append(model.Rows, Row{Terms: cardTerms, Bound: atMost(KMax)})

	// Constraint 3: tile exclusivity, for every tile used in ≥ 2 mosaics.
	var filenames []string
	for f := range tileIndex {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)
	for _, f := range filenames {
		idxs := tileIndex[f]
		if len(idxs) < 2 {
			continue
		}
		terms := make([]Term, len(idxs))
		for i, j := range idxs {
			terms[i] = Term{Var: j, Coef: 1}
		}
		model.Rows = append(model.Rows, Row{Terms: terms, Bound: atMost(1)})
	}

	// Pairwise Iⱼₖ and constraint 4 / linearized coverage floor.
	var linkingExtra []Row
	var coverageOjkTerms []Term
	coverageTerms := make([]Term, m)
	for j := 0; j < m; j++ {
		coverageTerms[j] = Term{Var: j, Coef: mosaics[j].PieCoverageRatio}
	}

	nextVar := m
	for j := 0; j < m; j++ {
		for k := j + 1; k < m; k++ {
			ijk := computeIjk(mosaics[j], mosaics[k], opts)
			pairIjk[[2]int{j, k}] = ijk

			switch opts.ConstraintVariant {
			case PairDisjunction:
				if ijk < ThetaOverlap {
					model.Rows = append(model.Rows, Row{
						Terms: []Term{{Var: j, Coef: 1}, {Var: k, Coef: 1}},
						Bound: atMost(1),
					})
				}
			case LinearizedCoverageFloor:
				o := nextVar
				nextVar++
				model.VarBound = append(model.VarBound, binaryBound())
				model.Integer = append(model.Integer, true)
				model.ObjCoef = append(model.ObjCoef, 0)

				// yⱼ + yₖ − 1 ≤ oⱼₖ
				linkingExtra = append(linkingExtra, Row{
					Terms: []Term{{Var: j, Coef: 1}, {Var: k, Coef: 1}, {Var: o, Coef: -1}},
					Bound: atMost(1),
				})
				// oⱼₖ ≤ yⱼ
				linkingExtra = append(linkingExtra, Row{
					Terms: []Term{{Var: o, Coef: 1}, {Var: j, Coef: -1}},
					Bound: atMost(0),
				})
				// oⱼₖ ≤ yₖ
				linkingExtra = append(linkingExtra, Row{
					Terms: []Term{{Var: o, Coef: 1}, {Var: k, Coef: -1}},
					Bound: atMost(0),
				})
				coverageOjkTerms = append(coverageOjkTerms, Term{Var: o, Coef: -ijk})
			}
		}
	}

	if opts.ConstraintVariant == LinearizedCoverageFloor {
		model.NumVars = nextVar
		model.Rows = append(model.Rows, linkingExtra...)
		floorTerms := append(append([]Term{}, coverageTerms...), coverageOjkTerms...)
		model.Rows = append(model.Rows, Row{Terms: floorTerms, Bound: atLeast(CMin)})

		// Alternative objective variant: subtract α·Σⱼ yⱼ cardinality
		// penalty (spec §4.5), only meaningful alongside variant (b).
		for j := 0; j < m; j++ {
			model.ObjCoef[j] -= Alpha
		}
	}

	return &BuildResult{Model: model, Mosaics: mosaics, PairIjk: pairIjk, Variant: opts}
}

// computeIjk implements spec §4.5's two admissible Iⱼₖ definitions.
func computeIjk(mj, mk *types.MosaicCandidate, opts Options) float64 {
	switch opts.IjkVariant {
	case IjkSharedImageRatio:
		if opts.AOIArea <= 0 {
			return 0
		}
		shared := sharedImageCount(mj, mk)
		minCount := len(mj.Images)
		if len(mk.Images) < minCount {
			minCount = len(mk.Images)
		}
		if minCount == 0 {
			return 0
		}
		sharedRatio := float64(shared) / float64(minCount)

		minAreaM2 := mj.PieCoverageArea
		if mk.PieCoverageArea < minAreaM2 {
			minAreaM2 = mk.PieCoverageArea
		}
		return minAreaM2 * sharedRatio / opts.AOIArea
	default: // IjkConservative
		if mj.PieCoverageRatio < mk.PieCoverageRatio {
			return mj.PieCoverageRatio
		}
		return mk.PieCoverageRatio
	}
}

func sharedImageCount(mj, mk *types.MosaicCandidate) int {
	set := make(map[string]bool, len(mj.Images))
	for _, t := range mj.Images {
		set[t.Filename] = true
	}
	var n int
	for _, t := range mk.Images {
		if set[t.Filename] {
			n++
		}
	}
	return n
}
