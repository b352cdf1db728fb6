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

package workload

import (
	"io"
	"io/ioutil"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"

	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/stmt/parse"
)

// manifest is the YAML shape a workload file decodes into: the model
// loader's `Entity`/`ForeignKey`/`(Entity ...) * N` forms and the `Q`,
// `Group` and `TimeSteps`/`F` workload forms, all spelled as YAML keys
// rather than the DSL's original keyword syntax.
type manifest struct {
	Entities   []entityManifest    `yaml:"entities"`
	Budget     interface{}         `yaml:"budget"`
	Mix        string              `yaml:"mix"`
	TimeSteps  int                 `yaml:"time_steps"`
	Statements []statementManifest `yaml:"statements"`
}

type entityManifest struct {
	Name   string                   `yaml:"name"`
	Count  interface{}              `yaml:"count"`
	Fields []map[string]interface{} `yaml:"fields"`
}

// statementManifest carries one parsed statement plus whichever of the
// three weight forms it was declared with: a plain Weight (`Q`), a
// Group of mix-labeled weights, or a TimeWeights vector (`F`).
type statementManifest struct {
	Stmt        string                 `yaml:"stmt"`
	Weight      interface{}            `yaml:"weight"`
	Group       map[string]interface{} `yaml:"group"`
	TimeWeights []interface{}          `yaml:"time_weights"`
}

// buildModel builds the Model named by the manifest's `entities` list.
// ForeignKey fields reference their target by name only; NewModel
// resolves and validates those references once every entity is built.
func buildModel(man manifest) (*model.Model, error) {
	entities := make([]*model.Entity, 0, len(man.Entities))
	for _, em := range man.Entities {
		if em.Name == "" {
			return nil, ErrInvalidWorkload.New("entity with no name")
		}
		count := cast.ToFloat64(em.Count)
		if count <= 0 {
			return nil, ErrInvalidWorkload.New("entity " + em.Name + " has no positive count")
		}
		fields := make([]model.Field, 0, len(em.Fields))
		for _, fm := range em.Fields {
			f, err := buildField(em.Name, fm)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		e, err := model.NewEntity(em.Name, count, fields...)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return model.NewModel(entities...)
}

// buildField translates one `fields:` entry into a model.Field. `kind`
// selects the constructor; `size` is the on-disk byte size every
// non-string constructor expects. String fields take their size from
// `length`, falling back to `size` when length is left unset.
func buildField(entity string, fm map[string]interface{}) (model.Field, error) {
	name := cast.ToString(fm["name"])
	if name == "" {
		return model.Field{}, ErrInvalidWorkload.New("field with no name on entity " + entity)
	}
	kind := cast.ToString(fm["kind"])
	size := cast.ToInt(fm["size"])

	switch kind {
	case "id":
		return model.IDField(entity, name, size), nil
	case "integer", "int":
		return model.IntegerField(entity, name, size), nil
	case "float":
		return model.FloatField(entity, name, size), nil
	case "string":
		length := cast.ToInt(fm["length"])
		if length == 0 {
			length = size
		}
		return model.StringField(entity, name, length), nil
	case "date":
		return model.DateField(entity, name, size), nil
	case "foreignkey", "fk":
		target := cast.ToString(fm["target"])
		if target == "" {
			return model.Field{}, ErrInvalidWorkload.New("foreign key " + entity + "." + name + " has no target")
		}
		arity := model.ArityOne
		if cast.ToString(fm["arity"]) == "many" {
			arity = model.ArityMany
		}
		return model.ForeignKeyField(entity, name, target, arity, size), nil
	default:
		return model.Field{}, ErrInvalidWorkload.New("unknown field kind: " + kind)
	}
}

// addStatements parses and registers every `statements:` entry against
// w, dispatching on whether the parsed Statement is a Query or a
// mutation and on which weight form the entry carries. A TimeWeights
// entry is only valid when tw is non-nil (the manifest declared
// time_steps), since a plain Workload has no per-step weight slot.
func addStatements(m *model.Model, man manifest, w *Workload, tw *TimeVaryingWorkload) error {
	for _, sm := range man.Statements {
		s, err := parse.Parse(m, sm.Stmt)
		if err != nil {
			return err
		}

		switch {
		case len(sm.TimeWeights) > 0:
			if tw == nil {
				return ErrInvalidWorkload.New("time_weights given but manifest has no time_steps: " + sm.Stmt)
			}
			weights := make([]float64, len(sm.TimeWeights))
			for i, v := range sm.TimeWeights {
				weights[i] = cast.ToFloat64(v)
			}
			if err := tw.AddTimeVarying(s, weights); err != nil {
				return err
			}
		case len(sm.Group) > 0:
			weights := make(map[string]float64, len(sm.Group))
			for label, v := range sm.Group {
				weights[label] = cast.ToFloat64(v)
			}
			if err := w.AddWeighted(s, cast.ToFloat64(sm.Weight), weights); err != nil {
				return err
			}
		default:
			weight := cast.ToFloat64(sm.Weight)
			var addErr error
			if q, ok := s.(stmt.Query); ok {
				addErr = w.AddQuery(q, weight)
			} else {
				addErr = w.AddMutation(s, weight)
			}
			if addErr != nil {
				return addErr
			}
		}
	}
	return nil
}

// Load parses a YAML workload manifest with no declared time_steps into
// a Model and a Workload. Use LoadTimeVarying for a manifest that
// declares time_steps.
func Load(r io.Reader) (*Workload, error) {
	man, err := decodeManifest(r)
	if err != nil {
		return nil, err
	}
	if man.TimeSteps > 0 {
		return nil, ErrInvalidWorkload.New("manifest declares time_steps; use LoadTimeVarying")
	}
	m, err := buildModel(man)
	if err != nil {
		return nil, err
	}
	w, err := NewWorkload(m, cast.ToFloat64(man.Budget))
	if err != nil {
		return nil, err
	}
	w.SetMix(man.Mix)
	if err := addStatements(m, man, w, nil); err != nil {
		return nil, err
	}
	return w, nil
}

// LoadTimeVarying parses a YAML workload manifest that declares
// time_steps into a Model and a TimeVaryingWorkload.
func LoadTimeVarying(r io.Reader) (*TimeVaryingWorkload, error) {
	man, err := decodeManifest(r)
	if err != nil {
		return nil, err
	}
	if man.TimeSteps <= 0 {
		return nil, ErrInvalidWorkload.New("manifest has no time_steps; use Load")
	}
	m, err := buildModel(man)
	if err != nil {
		return nil, err
	}
	tw, err := NewTimeVaryingWorkload(m, cast.ToFloat64(man.Budget), man.TimeSteps)
	if err != nil {
		return nil, err
	}
	tw.SetMix(man.Mix)
	if err := addStatements(m, man, tw.Workload, tw); err != nil {
		return nil, err
	}
	return tw, nil
}

func decodeManifest(r io.Reader) (manifest, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return manifest{}, err
	}
	var man manifest
	if err := yaml.Unmarshal(b, &man); err != nil {
		return manifest{}, ErrInvalidWorkload.New("malformed manifest: " + err.Error())
	}
	return man, nil
}
