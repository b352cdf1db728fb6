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

// Package nose wires the core collaborators together into the single
// end-to-end advisor run: candidate enumeration, per-statement planning
// and MILP-based schema selection. It is the "caller" named in package
// enumerator's doc comment, the one place permitted to depend on both
// enumerator and updateplanner without creating a cycle between them.
package nose

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/cost"
	"github.com/nosehq/nose/enumerator"
	"github.com/nosehq/nose/index"
	"github.com/nosehq/nose/milp"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/planner"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/updateplanner"
	"github.com/nosehq/nose/workload"
)

// Advisor runs the full recommendation pipeline against a fixed cost
// model and MILP solver.
type Advisor struct {
	Cost   cost.Model
	Solver milp.Solver
}

// NewAdvisor builds an Advisor. costModel defaults to cost.Default and
// solver defaults to a fresh milp.BranchAndBound when nil.
func NewAdvisor(costModel cost.Model, solver milp.Solver) *Advisor {
	if costModel == nil {
		costModel = cost.Default
	}
	return &Advisor{Cost: costModel, Solver: solver}
}

// mutationWork pairs a workload entry's position with the maintenance
// plan derived for it, keeping the two in lockstep without using a
// Statement value as a map key (Statement implementations embed slices
// and Paths, so they are not comparable).
type mutationWork struct {
	entryIndex int
	plan       *updateplanner.Plan
}

// Recommend enumerates candidate indexes for w's read queries, derives
// every mutation's support queries and maintenance plan, plans every
// query and support query over the resulting candidate set, and solves
// the index-selection program. Candidate enumeration and support-query
// derivation are mutually feeding (§4.1): a first maintenance pass
// surfaces each mutation's support queries, whose own candidates are
// unioned in before plans are finalized, so every statement the MILP
// sees was planned against the same, complete candidate universe.
func (a *Advisor) Recommend(ctx context.Context, w *workload.Workload) (*milp.Schema, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "nose.Recommend")
	defer span.Finish()

	entries := w.Entries()
	candidates, mutations, err := a.buildCandidates(ctx, w.Model, entries)
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}
	span.SetTag("candidates", candidates.Len())
	span.SetTag("mutations", len(mutations))

	pl := planner.New(a.Cost)
	problem := milp.NewProblem(w.Model, w.Budget, a.Solver, a.Cost)

	planSpan, _ := opentracing.StartSpanFromContext(ctx, "nose.planQueries")
	for _, e := range entries {
		q, ok := e.Statement.(stmt.Query)
		if !ok {
			continue
		}
		plans, err := pl.Plan(w.Model, q, candidates)
		if err != nil {
			planSpan.SetTag("error", true)
			planSpan.Finish()
			span.SetTag("error", true)
			return nil, err
		}
		problem.AddQuery(milp.QueryInput{Query: q, Weight: w.WeightFor(e), Plans: plans})
	}

	for _, mw := range mutations {
		e := entries[mw.entryIndex]
		weight := w.WeightFor(e)
		for _, sq := range mw.plan.Support {
			plans, err := pl.Plan(w.Model, sq.Query, candidates)
			if err != nil {
				planSpan.SetTag("error", true)
				planSpan.Finish()
				span.SetTag("error", true)
				return nil, err
			}
			problem.AddQuery(milp.QueryInput{Query: sq.Query, Weight: weight, Plans: plans})
		}
		problem.AddMutation(milp.MutationInput{Statement: e.Statement, Weight: weight, Plan: mw.plan})
	}
	planSpan.Finish()

	logrus.WithFields(logrus.Fields{
		"candidates": candidates.Len(),
		"queries":    len(w.Queries()),
		"mutations":  len(mutations),
	}).Debug("advisor assembled milp problem")

	return problem.Solve(ctx)
}

// RecommendTimeDependent runs the same pipeline as Recommend against a
// time-varying workload (§6 `TimeSteps`/`F`), building the T-indexed
// program milp.BuildTimeDependent describes instead of milp.NewProblem.
func (a *Advisor) RecommendTimeDependent(ctx context.Context, tw *workload.TimeVaryingWorkload) (*milp.TimeSchema, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "nose.RecommendTimeDependent")
	defer span.Finish()

	entries := tw.Entries()
	candidates, mutations, err := a.buildCandidates(ctx, tw.Model, entries)
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}
	span.SetTag("candidates", candidates.Len())
	span.SetTag("steps", tw.Steps)
	span.SetTag("mutations", len(mutations))

	pl := planner.New(a.Cost)
	problem := milp.BuildTimeDependent(tw.Model, tw.Budget, tw.Steps, a.Solver, a.Cost)

	weights := func(e workload.Entry) []float64 {
		out := make([]float64, tw.Steps)
		for t := range out {
			out[t] = tw.WeightAt(e, t)
		}
		return out
	}

	planSpan, _ := opentracing.StartSpanFromContext(ctx, "nose.planQueries")
	for _, e := range entries {
		q, ok := e.Statement.(stmt.Query)
		if !ok {
			continue
		}
		plans, err := pl.Plan(tw.Model, q, candidates)
		if err != nil {
			planSpan.SetTag("error", true)
			planSpan.Finish()
			span.SetTag("error", true)
			return nil, err
		}
		problem.AddQuery(milp.TimeQueryInput{Query: q, Weights: weights(e), Plans: plans})
	}

	for _, mw := range mutations {
		e := entries[mw.entryIndex]
		w := weights(e)
		for _, sq := range mw.plan.Support {
			plans, err := pl.Plan(tw.Model, sq.Query, candidates)
			if err != nil {
				planSpan.SetTag("error", true)
				planSpan.Finish()
				span.SetTag("error", true)
				return nil, err
			}
			problem.AddQuery(milp.TimeQueryInput{Query: sq.Query, Weights: w, Plans: plans})
		}
		problem.AddMutation(milp.TimeMutationInput{Statement: e.Statement, Weights: w, Plan: mw.plan})
	}
	planSpan.Finish()

	logrus.WithFields(logrus.Fields{
		"candidates": candidates.Len(),
		"steps":      tw.Steps,
		"mutations":  len(mutations),
	}).Debug("advisor assembled time-dependent milp problem")

	return problem.Solve(ctx)
}

// buildCandidates runs the shared enumeration/maintenance-planning pass
// Recommend and RecommendTimeDependent both need: the candidate universe
// for m's read queries, widened by every mutation's support-query
// candidates and re-planned against that final universe.
func (a *Advisor) buildCandidates(ctx context.Context, m *model.Model, entries []workload.Entry) (*index.Set, []mutationWork, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "nose.buildCandidates")
	defer span.Finish()

	var queries []stmt.Query
	for _, e := range entries {
		if q, ok := e.Statement.(stmt.Query); ok {
			queries = append(queries, q)
		}
	}
	candidates, err := enumerator.IndexesForQueries(m, queries)
	if err != nil {
		span.SetTag("error", true)
		return nil, nil, err
	}

	up := updateplanner.New(a.Cost)

	var mutations []mutationWork
	for i, e := range entries {
		if !e.Statement.Kind().IsMutation() {
			continue
		}
		plan, err := up.Plan(m, e.Statement, candidates)
		if err != nil {
			span.SetTag("error", true)
			return nil, nil, err
		}
		for _, sq := range plan.Support {
			sqCandidates, err := enumerator.IndexesForQuery(m, sq.Query)
			if err != nil {
				span.SetTag("error", true)
				return nil, nil, err
			}
			candidates.Union(sqCandidates)
		}
		mutations = append(mutations, mutationWork{entryIndex: i, plan: plan})
	}

	// Re-derive every maintenance plan now that support-query candidates
	// are in the universe, so CostByIndex/IndexesByKey and the support
	// queries themselves are priced against the final candidate set.
	for i := range mutations {
		e := entries[mutations[i].entryIndex]
		plan, err := up.Plan(m, e.Statement, candidates)
		if err != nil {
			span.SetTag("error", true)
			return nil, nil, err
		}
		mutations[i].plan = plan
	}

	span.SetTag("candidates", candidates.Len())
	span.SetTag("mutations", len(mutations))
	return candidates, mutations, nil
}
