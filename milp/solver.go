// Copyright 2024 The NoSE Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package milp

import (
	"container/heap"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Op is a linear constraint's comparison operator.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

// constraint is one row of the program, in the caller's original
// variable indices (dense A is assembled lazily at solve time).
type constraint struct {
	coeffs map[int]float64
	op     Op
	rhs    float64
}

// Solution is the relaxed-then-rounded assignment a Solver produced.
type Solution struct {
	Objective float64
	values    []float64
}

// Value returns the solved value of the variable with the given id.
func (s Solution) Value(id int) float64 { return s.values[id] }

// Solver is the abstract MILP interface of §9:
// {add_var, add_constraint, set_objective, solve, get_value}. Every
// variable this package creates is binary; BranchAndBound is the only
// implementation, but Problem only ever talks to this interface so a
// different engine can be substituted without touching the builder.
type Solver interface {
	AddVar() int
	AddConstraint(coeffs map[int]float64, op Op, rhs float64)
	SetObjective(coeffs map[int]float64)
	Solve() (Solution, error)
	GetValue(id int) float64
}

// BranchAndBound is a binary-ILP solver: LP relaxations are solved with
// gonum's dense-tableau simplex (gonum.org/v1/gonum/optimize/convex/lp),
// and integrality is recovered by a best-first branch-and-bound search
// over variable bounds, pruning every node whose relaxation bound cannot
// beat the incumbent.
type BranchAndBound struct {
	objective   []float64
	constraints []constraint
	nVars       int
	Tolerance   float64
	Deadline    time.Time // zero means no deadline

	last Solution
}

// NewBranchAndBound builds an empty solver. Tolerance defaults to 1e-6
// when not overridden.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{Tolerance: 1e-6}
}

// SetDeadline bounds how long Solve searches before returning its best
// incumbent so far, per §5's cancellation contract.
func (b *BranchAndBound) SetDeadline(d time.Time) { b.Deadline = d }

func (b *BranchAndBound) AddVar() int {
	b.nVars++
	b.objective = append(b.objective, 0)
	return b.nVars - 1
}

func (b *BranchAndBound) AddConstraint(coeffs map[int]float64, op Op, rhs float64) {
	cp := make(map[int]float64, len(coeffs))
	for k, v := range coeffs {
		cp[k] = v
	}
	b.constraints = append(b.constraints, constraint{coeffs: cp, op: op, rhs: rhs})
}

func (b *BranchAndBound) SetObjective(coeffs map[int]float64) {
	for k, v := range coeffs {
		b.objective[k] = v
	}
}

func (b *BranchAndBound) GetValue(id int) float64 { return b.last.Value(id) }

// bbNode is one box [lo,hi]^n of the search tree; bound is its LP
// relaxation's objective value, a valid lower bound on every integer
// point inside the box.
type bbNode struct {
	lo, hi []float64
	x      []float64
	bound  float64
}

type nodeHeap []*bbNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].bound < h[j].bound }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*bbNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Solve runs the branch-and-bound search. It returns ErrNoSolution when
// the root relaxation is infeasible or no integer-feasible leaf is ever
// found.
func (b *BranchAndBound) Solve() (Solution, error) {
	n := b.nVars
	lo0 := make([]float64, n)
	hi0 := make([]float64, n)
	for i := range hi0 {
		hi0[i] = 1
	}

	rootObj, rootX, err := b.relax(lo0, hi0)
	if err != nil {
		return Solution{}, ErrNoSolution.New(NoSolutionCoverage.String())
	}

	frontier := &nodeHeap{{lo: lo0, hi: hi0, x: rootX, bound: rootObj}}
	heap.Init(frontier)

	var incumbent []float64
	incumbentObj := math.Inf(1)

	const maxExpansions = 20000
	expansions := 0
	hasDeadline := !b.Deadline.IsZero()
	timedOut := false

	for frontier.Len() > 0 && expansions < maxExpansions {
		if hasDeadline && time.Now().After(b.Deadline) {
			timedOut = true
			break
		}
		expansions++
		node := heap.Pop(frontier).(*bbNode)
		if node.bound >= incumbentObj-b.Tolerance {
			continue
		}

		idx, frac, integral := mostFractional(node.x, b.Tolerance)
		if integral {
			if node.bound < incumbentObj {
				incumbentObj = node.bound
				incumbent = node.x
			}
			continue
		}

		branches := [2]struct{ lo, hi float64 }{
			{node.lo[idx], math.Floor(frac)},
			{math.Ceil(frac), node.hi[idx]},
		}
		for _, br := range branches {
			if br.lo > br.hi+b.Tolerance {
				continue
			}
			childLo := append([]float64(nil), node.lo...)
			childHi := append([]float64(nil), node.hi...)
			childLo[idx] = br.lo
			childHi[idx] = br.hi
			obj, x, err := b.relax(childLo, childHi)
			if err != nil {
				continue
			}
			if obj >= incumbentObj-b.Tolerance {
				continue
			}
			heap.Push(frontier, &bbNode{lo: childLo, hi: childHi, x: x, bound: obj})
		}
	}

	if incumbent == nil {
		if timedOut {
			return Solution{}, ErrNoSolution.New(NoSolutionTimeout.String())
		}
		return Solution{}, ErrNoSolution.New(NoSolutionCoverage.String())
	}
	b.last = Solution{Objective: incumbentObj, values: incumbent}
	return b.last, nil
}

func mostFractional(x []float64, tol float64) (idx int, frac float64, integral bool) {
	best := -1.0
	bestIdx := -1
	for i, v := range x {
		d := math.Min(v-math.Floor(v), math.Ceil(v)-v)
		if d > tol && d > best {
			best = d
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, 0, true
	}
	return bestIdx, x[bestIdx], false
}

// relax solves the LP relaxation of the program restricted to the box
// [lo,hi]. Every row is rewritten as an equality with a slack or
// surplus column (A x = b, x >= 0); gonum's Simplex recovers an initial
// basic feasible solution itself via its phase-1 auxiliary program when
// passed a nil initial basis, so rows need no particular sign of b.
func (b *BranchAndBound) relax(lo, hi []float64) (float64, []float64, error) {
	n := b.nVars
	width := make([]float64, n)
	for j := range width {
		width[j] = hi[j] - lo[j]
	}

	numSlack := len(b.constraints) + n // one per original row, one per upper-bound row
	cols := n + numSlack

	var rows [][]float64
	var rhs []float64
	slack := n

	addRow := func(coeffs map[int]float64, op Op, r float64) {
		row := make([]float64, cols)
		for j, a := range coeffs {
			row[j] = a
			r -= a * lo[j]
		}
		switch op {
		case EQ:
			// no slack column; equality carried through directly
		case LE:
			row[slack] = 1
			slack++
		case GE:
			row[slack] = -1
			slack++
		}
		rows = append(rows, row)
		rhs = append(rhs, r)
	}

	for _, c := range b.constraints {
		addRow(c.coeffs, c.op, c.rhs)
	}
	for j := 0; j < n; j++ {
		addRow(map[int]float64{j: 1}, LE, width[j])
	}

	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	A := mat.NewDense(len(rows), cols, data)

	c := make([]float64, cols)
	copy(c, b.objective)

	objConst := 0.0
	for j := 0; j < n; j++ {
		objConst += b.objective[j] * lo[j]
	}

	optF, optX, err := lp.Simplex(c, A, rhs, 1e-10, nil)
	if err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = optX[j] + lo[j]
	}
	return optF + objConst, x, nil
}

var _ Solver = (*BranchAndBound)(nil)
