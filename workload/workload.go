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

// Package workload defines Workload: a Model plus a weighted set of
// Statements, a storage budget and the mix/time-step weight machinery
// §6 of the statement grammar surfaces as the `Group` and `TimeSteps`/`F`
// DSL forms.
package workload

import (
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
)

// Entry pairs a Statement with the weight(s) it carries. A Statement
// added by plain AddQuery/AddMutation gets a single Weight; one added
// through a `Group` (AddWeighted) additionally carries a MixWeights
// column selected by the workload's active Mix; one added to a
// TimeVaryingWorkload additionally carries a TimeWeights vector indexed
// by time step.
type Entry struct {
	Statement   stmt.Statement
	Weight      float64
	MixWeights  map[string]float64
	TimeWeights []float64
}

// Workload is (Model, list of (Statement, weight), storage_budget, mix
// label) per §3. It is built incrementally with AddQuery/AddMutation/
// AddWeighted; every transformation elsewhere takes a *Workload by
// pointer but never mutates one it did not itself build (§5).
type Workload struct {
	Model  *model.Model
	Budget float64
	// Mix selects which MixWeights column WeightFor consults. Empty
	// means every Entry's single Weight applies unconditionally.
	Mix string

	entries []Entry
}

// NewWorkload builds an empty Workload against m with the given storage
// budget. budget must be positive per §3; callers that need an
// unconstrained advisor run should pass math.MaxFloat64.
func NewWorkload(m *model.Model, budget float64) (*Workload, error) {
	if budget <= 0 {
		return nil, ErrInvalidWorkload.New("storage budget must be positive")
	}
	return &Workload{Model: m, Budget: budget}, nil
}

// AddQuery registers a read Statement with a single weight.
func (w *Workload) AddQuery(q stmt.Query, weight float64) error {
	return w.addEntry(Entry{Statement: q, Weight: weight})
}

// AddMutation registers a mutating Statement (Update, Insert or Delete)
// with a single weight.
func (w *Workload) AddMutation(s stmt.Statement, weight float64) error {
	if !s.Kind().IsMutation() {
		return ErrInvalidWorkload.New("AddMutation given a non-mutating statement")
	}
	return w.addEntry(Entry{Statement: s, Weight: weight})
}

// AddWeighted registers a Statement whose weight varies by mix label,
// the `Group` DSL form of §6. weights must be non-empty; WeightFor falls
// back to defaultWeight for a mix label absent from weights.
func (w *Workload) AddWeighted(s stmt.Statement, defaultWeight float64, weights map[string]float64) error {
	if len(weights) == 0 {
		return ErrInvalidWorkload.New("Group statement has no mix weights")
	}
	cp := make(map[string]float64, len(weights))
	for k, v := range weights {
		if v <= 0 {
			return ErrInvalidWorkload.New("mix weight must be positive: " + k)
		}
		cp[k] = v
	}
	return w.addEntry(Entry{Statement: s, Weight: defaultWeight, MixWeights: cp})
}

func (w *Workload) addEntry(e Entry) error {
	if e.Weight <= 0 && len(e.MixWeights) == 0 && len(e.TimeWeights) == 0 {
		return ErrInvalidWorkload.New("statement weight must be positive")
	}
	w.entries = append(w.entries, e)
	return nil
}

// SetMix selects the active mix label; WeightFor(e) thereafter prefers
// e.MixWeights[label] over e.Weight whenever present.
func (w *Workload) SetMix(label string) { w.Mix = label }

// Entries returns every (Statement, weight spec) pair added so far, in
// insertion order. The returned slice must not be mutated.
func (w *Workload) Entries() []Entry { return w.entries }

// Queries returns every read Statement in the workload.
func (w *Workload) Queries() []stmt.Query {
	var out []stmt.Query
	for _, e := range w.entries {
		if q, ok := e.Statement.(stmt.Query); ok {
			out = append(out, q)
		}
	}
	return out
}

// Mutations returns every mutating Statement in the workload.
func (w *Workload) Mutations() []stmt.Statement {
	var out []stmt.Statement
	for _, e := range w.entries {
		if e.Statement.Kind().IsMutation() {
			out = append(out, e.Statement)
		}
	}
	return out
}

// WeightFor resolves the weight an Entry contributes under the
// workload's active Mix: the mix-specific column when one is set and the
// active Mix names a column present in it, otherwise the Entry's single
// Weight.
func (w *Workload) WeightFor(e Entry) float64 {
	if w.Mix != "" {
		if v, ok := e.MixWeights[w.Mix]; ok {
			return v
		}
	}
	return e.Weight
}

// Validate checks every Statement's own invariants against Model,
// per §7: "InvalidStatement encountered while adding to a Workload marks
// the workload invalid but does not abort adding further statements, so
// that valid? may report all problems." It therefore accumulates every
// violation into one *multierror.Error rather than failing fast, unlike
// every other entry point in the core.
func (w *Workload) Validate() *multierror.Error {
	var result *multierror.Error
	for _, e := range w.entries {
		if err := e.Statement.Validate(w.Model); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		logrus.WithField("errors", result.Len()).Debug("workload failed validation")
	}
	return result
}

// Valid reports whether every Statement in the workload satisfies its
// own invariants.
func (w *Workload) Valid() bool {
	return w.Validate().ErrorOrNil() == nil
}

// TimeVaryingWorkload augments Workload with a per-statement weight
// vector indexed by time step, the `TimeSteps N` / `F stmt, [w0..wN-1]`
// DSL form of §6. SearchMILP's plan variables and constraints C1-C3
// replicate per time step when Steps > 0 (see milp.BuildTimeDependent),
// sharing x_i across steps since an index, once built, persists; the
// storage budget (C4) is a single constraint over the shared x_i.
type TimeVaryingWorkload struct {
	*Workload
	Steps int
}

// NewTimeVaryingWorkload builds an empty time-dependent workload with
// the given number of time steps.
func NewTimeVaryingWorkload(m *model.Model, budget float64, steps int) (*TimeVaryingWorkload, error) {
	if steps <= 0 {
		return nil, ErrInvalidWorkload.New("time-dependent workload needs at least one time step")
	}
	w, err := NewWorkload(m, budget)
	if err != nil {
		return nil, err
	}
	return &TimeVaryingWorkload{Workload: w, Steps: steps}, nil
}

// AddTimeVarying registers a Statement with one weight per time step,
// the `F stmt, [w0..wN-1]` form. len(weights) must equal Steps.
func (tw *TimeVaryingWorkload) AddTimeVarying(s stmt.Statement, weights []float64) error {
	if len(weights) != tw.Steps {
		return ErrInvalidWorkload.New("time-varying weight vector length must equal TimeSteps")
	}
	for _, v := range weights {
		if v < 0 {
			return ErrInvalidWorkload.New("time-varying weight must be nonnegative")
		}
	}
	return tw.addEntry(Entry{Statement: s, TimeWeights: append([]float64(nil), weights...)})
}

// WeightAt resolves e's weight at time step t, falling back to
// WeightFor(e) when e carries no TimeWeights (a statement added through
// AddQuery/AddMutation/AddWeighted to a workload that also happens to be
// time-dependent keeps a constant weight across every step).
func (tw *TimeVaryingWorkload) WeightAt(e Entry, t int) float64 {
	if len(e.TimeWeights) > t {
		return e.TimeWeights[t]
	}
	return tw.WeightFor(e)
}
