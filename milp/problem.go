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
	"context"
	"sort"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/planner"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/updateplanner"
)

// QueryInput is one query's weight and every minimum-cost plan the
// planner found for it over the full candidate index set.
type QueryInput struct {
	Query  stmt.Query
	Weight float64
	Plans  []planner.Plan
}

// MutationInput is one mutating statement's weight and the maintenance
// plan updateplanner derived for it.
type MutationInput struct {
	Statement stmt.Statement
	Weight    float64
	Plan      *updateplanner.Plan
}

// Schema is the chosen subset of indexes plus the chosen plan per
// statement, the output of §4.5.
type Schema struct {
	Indexes    []*index.Index
	QueryPlans map[string]planner.Plan
	Objective  float64

	// Candidates is the size of the candidate index universe the solve
	// chose from, i.e. the union of every plan's and maintenance cost's
	// indexes before C1-C4 narrowed it down. Exposed for the CLI's
	// metrics collaborator.
	Candidates int
}

// deadliner lets Problem pass a wall-clock deadline through to a Solver
// that supports one, without widening the abstract Solver interface.
type deadliner interface {
	SetDeadline(time.Time)
}

// Problem builds variables x_i, y_{q,p} and u_{m,i} and constraints
// C1-C4 against a Solver, then solves and decodes the result into a
// Schema.
type Problem struct {
	m      *model.Model
	budget float64
	cost   cost.Model
	solver Solver

	queries   []QueryInput
	mutations []MutationInput
}

// NewProblem builds an empty Problem. solver defaults to a fresh
// BranchAndBound when nil; costModel defaults to cost.Default.
func NewProblem(m *model.Model, budget float64, solver Solver, costModel cost.Model) *Problem {
	if solver == nil {
		solver = NewBranchAndBound()
	}
	if costModel == nil {
		costModel = cost.Default
	}
	return &Problem{m: m, budget: budget, solver: solver, cost: costModel}
}

// AddQuery registers a query's candidate plans.
func (p *Problem) AddQuery(q QueryInput) { p.queries = append(p.queries, q) }

// AddMutation registers a mutation's maintenance plan.
func (p *Problem) AddMutation(m MutationInput) { p.mutations = append(p.mutations, m) }

// Solve builds and solves the program. ctx's deadline, if any, is
// forwarded to the solver when it supports SetDeadline; on expiry the
// solver returns its best feasible solution or NoSolution(timeout).
func (p *Problem) Solve(ctx context.Context) (*Schema, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "milp.Solve")
	defer span.Finish()
	span.SetTag("queries", len(p.queries))
	span.SetTag("mutations", len(p.mutations))

	for _, qi := range p.queries {
		if len(qi.Plans) == 0 {
			// C1 would be an empty sum forced to equal 1: infeasible
			// regardless of budget, the common NoPlan-propagated case.
			span.SetTag("error", true)
			return nil, ErrNoSolution.New(NoSolutionCoverage.String())
		}
	}

	universe := make(map[string]*index.Index)
	for _, qi := range p.queries {
		for _, pl := range qi.Plans {
			for _, idx := range pl.Indexes() {
				universe[idx.Key()] = idx
			}
		}
	}
	for _, mi := range p.mutations {
		for k, idx := range mi.Plan.IndexesByKey() {
			universe[k] = idx
		}
	}

	keys := make([]string, 0, len(universe))
	for k := range universe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	span.SetTag("candidates", len(keys))

	xVar := make(map[string]int, len(keys))
	for _, k := range keys {
		xVar[k] = p.solver.AddVar()
	}

	objective := make(map[int]float64)

	type planVar struct {
		id   int
		plan planner.Plan
	}
	queryPlanVars := make(map[string][]planVar, len(p.queries))

	for _, qi := range p.queries {
		var vars []int
		for _, pl := range qi.Plans {
			vid := p.solver.AddVar()
			vars = append(vars, vid)
			objective[vid] = qi.Weight * pl.Cost
			queryPlanVars[qi.Query.String()] = append(queryPlanVars[qi.Query.String()], planVar{id: vid, plan: pl})

			for _, idx := range pl.Indexes() {
				// C2: y_{q,p} <= x_i
				p.solver.AddConstraint(map[int]float64{vid: 1, xVar[idx.Key()]: -1}, LE, 0)
			}
		}
		// C1: exactly one plan per query
		c1 := make(map[int]float64, len(vars))
		for _, v := range vars {
			c1[v] = 1
		}
		p.solver.AddConstraint(c1, EQ, 1)
	}

	for _, mi := range p.mutations {
		for key, c := range mi.Plan.CostByIndex(p.cost) {
			vid := p.solver.AddVar()
			objective[vid] = mi.Weight * c
			// C3: u_{m,i} = x_i
			p.solver.AddConstraint(map[int]float64{vid: 1, xVar[key]: -1}, EQ, 0)
		}
	}

	// C4: storage budget
	c4 := make(map[int]float64, len(keys))
	for _, k := range keys {
		size, err := universe[k].Size(p.m)
		if err != nil {
			span.SetTag("error", true)
			return nil, err
		}
		c4[xVar[k]] = size
	}
	p.solver.AddConstraint(c4, LE, p.budget)

	p.solver.SetObjective(objective)

	if d, ok := ctx.Deadline(); ok {
		if dl, ok := p.solver.(deadliner); ok {
			dl.SetDeadline(d)
		}
	}

	sol, err := p.solver.Solve()
	if err != nil {
		span.SetTag("error", true)
		logrus.WithError(err).Debug("milp solve failed")
		return nil, err
	}

	var chosen []*index.Index
	for _, k := range keys {
		if sol.Value(xVar[k]) > 0.5 {
			chosen = append(chosen, universe[k])
		}
	}

	plans := make(map[string]planner.Plan, len(p.queries))
	for _, qi := range p.queries {
		for _, pv := range queryPlanVars[qi.Query.String()] {
			if sol.Value(pv.id) > 0.5 {
				plans[qi.Query.String()] = pv.plan
				break
			}
		}
	}

	span.SetTag("indexes_chosen", len(chosen))
	span.SetTag("objective", sol.Objective)

	logrus.WithFields(logrus.Fields{
		"indexes":   len(chosen),
		"objective": sol.Objective,
	}).Debug("milp solved")

	return &Schema{Indexes: chosen, QueryPlans: plans, Objective: sol.Objective, Candidates: len(keys)}, nil
}
