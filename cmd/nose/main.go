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

// Command nose is the CLI collaborator: it loads a workload manifest,
// runs the advisor pipeline end to end, and prints the chosen schema as
// JSON. Its exit codes are part of the external interface (§6): 0 on
// success, 2 on a statement parse failure, 3 when the MILP has no
// solution, 4 for every other invalid-model/workload condition.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	nose "github.com/nosehq/nose"
	"github.com/nosehq/nose/milp"
	"github.com/nosehq/nose/model"
	"github.com/nosehq/nose/stmt"
	"github.com/nosehq/nose/workload"
)

// Metrics exposed on the serve subcommand's /metrics endpoint, scraped by
// Prometheus against the same process that answers /schema.
var (
	candidatesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nose",
		Name:      "candidates_total",
		Help:      "Size of the candidate index universe in the most recent solve.",
	})
	objectiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nose",
		Name:      "objective_value",
		Help:      "Objective value of the most recently chosen schema.",
	})
	indexesChosenGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nose",
		Name:      "indexes_chosen",
		Help:      "Number of indexes in the most recently chosen schema.",
	})
	solveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nose",
		Name:      "solve_duration_seconds",
		Help:      "Wall-clock time spent in the advisor pipeline per recommend call.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(candidatesGauge, objectiveGauge, indexesChosenGauge, solveDuration)
}

const (
	exitSuccess      = 0
	exitParseFailed  = 2
	exitNoSolution   = 3
	exitInvalidInput = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("nose", flag.ContinueOnError)
	workloadPath := fs.String("workload", "", "path to a YAML workload manifest")
	timeout := fs.Duration("timeout", 30*time.Second, "deadline for the MILP solve")
	addr := fs.String("addr", ":4646", "address to listen on for the serve subcommand")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	sub := "plan"
	if fs.NArg() > 0 {
		sub = fs.Arg(0)
	}

	if *workloadPath == "" {
		fmt.Fprintln(os.Stderr, "nose: -workload is required")
		return exitInvalidInput
	}

	f, err := os.Open(*workloadPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nose:", err)
		return exitInvalidInput
	}
	defer f.Close()

	w, err := workload.Load(f)
	if err != nil {
		return reportErr(err)
	}

	switch sub {
	case "plan":
		return runPlan(w, *timeout)
	case "serve":
		return runServe(w, *timeout, *addr)
	default:
		fmt.Fprintln(os.Stderr, "nose: unknown subcommand:", sub)
		return exitInvalidInput
	}
}

func runPlan(w *workload.Workload, timeout time.Duration) int {
	schema, err := recommend(w, timeout)
	if err != nil {
		return reportErr(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schemaDescriptor(schema)); err != nil {
		fmt.Fprintln(os.Stderr, "nose:", err)
		return exitInvalidInput
	}
	return exitSuccess
}

// runServe exposes the chosen schema over HTTP instead of stdout,
// re-running the advisor on every request so a long-lived process keeps
// reflecting the same manifest without a restart.
func runServe(w *workload.Workload, timeout time.Duration, addr string) int {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(resp http.ResponseWriter, req *http.Request) {
		resp.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/schema", func(resp http.ResponseWriter, req *http.Request) {
		schema, err := recommend(w, timeout)
		if err != nil {
			http.Error(resp, err.Error(), httpStatusFor(err))
			return
		}
		resp.Header().Set("Content-Type", "application/json")
		json.NewEncoder(resp).Encode(schemaDescriptor(schema))
	})
	logrus.WithField("addr", addr).Info("nose serve listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		fmt.Fprintln(os.Stderr, "nose:", err)
		return exitInvalidInput
	}
	return exitSuccess
}

func recommend(w *workload.Workload, timeout time.Duration) (*milp.Schema, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	adv := nose.NewAdvisor(nil, nil)

	start := time.Now()
	schema, err := adv.Recommend(ctx, w)
	solveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	candidatesGauge.Set(float64(schema.Candidates))
	objectiveGauge.Set(schema.Objective)
	indexesChosenGauge.Set(float64(len(schema.Indexes)))
	return schema, nil
}

// indexDescriptor mirrors §6's chosen-schema output: one descriptor per
// chosen index (key, H, O, X, P) plus one per-query plan descriptor of
// ordered steps.
type indexDescriptor struct {
	Key   string   `json:"key"`
	Hash  []string `json:"hash"`
	Order []string `json:"order"`
	Extra []string `json:"extra"`
	Path  string   `json:"path"`
}

type schemaOutput struct {
	Indexes    []indexDescriptor `json:"indexes"`
	QueryPlans map[string]string `json:"query_plans"`
	Objective  float64           `json:"objective"`
}

func schemaDescriptor(schema *milp.Schema) schemaOutput {
	out := schemaOutput{QueryPlans: make(map[string]string, len(schema.QueryPlans)), Objective: schema.Objective}
	for _, idx := range schema.Indexes {
		out.Indexes = append(out.Indexes, indexDescriptor{
			Key:   idx.Key(),
			Hash:  fieldStrings(idx.Hash),
			Order: fieldStrings(idx.Order),
			Extra: fieldStrings(idx.Extra),
			Path:  idx.Path.String(),
		})
	}
	for query, plan := range schema.QueryPlans {
		out.QueryPlans[query] = plan.String()
	}
	return out
}

func fieldStrings(fs []model.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// reportErr prints err to stderr and maps it to its process exit code
// per §6.
func reportErr(err error) int {
	fmt.Fprintln(os.Stderr, "nose:", err)
	switch {
	case stmt.ErrParseFailed.Is(err):
		return exitParseFailed
	case milp.ErrNoSolution.Is(err):
		return exitNoSolution
	default:
		return exitInvalidInput
	}
}

// httpStatusFor maps the same error kinds to an HTTP status for the
// serve subcommand's /schema endpoint.
func httpStatusFor(err error) int {
	switch {
	case stmt.ErrParseFailed.Is(err):
		return http.StatusBadRequest
	case milp.ErrNoSolution.Is(err):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
