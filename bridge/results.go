// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bridge

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/db47h/dase"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Results status values.
const (
	StatusComputed = "computed"
	StatusFailed   = "failed"
)

// Results is the document read back by the front end after a computation.
//
type Results struct {
	RunID       string                `json:"run_id"`
	Name        string                `json:"name,omitempty"`
	Cells       map[string]CellResult `json:"cells"`
	Nodes       []NodeResult          `json:"nodes,omitempty"`
	Status      string                `json:"status"`
	Performance Performance           `json:"performance"`
}

// CellResult is the computed value of a single cell.
//
type CellResult struct {
	Value    float64 `json:"value"`
	Computed bool    `json:"computed"`
	Error    string  `json:"error,omitempty"`
}

// NodeResult is the final state of an engine node. Error is set and Value
// zeroed if the node value is not finite.
//
type NodeResult struct {
	Index int       `json:"index"`
	Role  dase.Role `json:"role"`
	Value float64   `json:"value"`
	Error string    `json:"error,omitempty"`
}

// checkFinite returns an error message if v is NaN or infinite. JSON has no
// representation for such values.
func checkFinite(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "non-finite value " + strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

// computed returns the result of a cell computed to v.
func computed(v float64) CellResult {
	if msg := checkFinite(v); msg != "" {
		return CellResult{Error: msg}
	}
	return CellResult{Value: v, Computed: true}
}

// add stores c as cell ref and marks r as failed if c has an error.
func (r *Results) add(ref string, c CellResult) {
	r.Cells[ref] = c
	if c.Error != "" {
		r.Status = StatusFailed
	}
}

func (r *Results) addNodes(snap []dase.NodeSnapshot) {
	r.Nodes = make([]NodeResult, len(snap))
	for i, n := range snap {
		nr := NodeResult{Index: n.Index, Role: n.Role, Value: n.Value}
		if nr.Error = checkFinite(n.Value); nr.Error != "" {
			nr.Value = 0
			r.Status = StatusFailed
		}
		r.Nodes[i] = nr
	}
}

// Performance holds the timing of a computation.
//
type Performance struct {
	ExecutionTimeMS float64   `json:"execution_time_ms"`
	NodesComputed   int       `json:"nodes_computed"`
	NodeType        string    `json:"node_type"`
	RoleSwitches    uint64    `json:"role_switches,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func newPerformance(d time.Duration, n int, typ string) Performance {
	return Performance{
		ExecutionTimeMS: float64(d) / float64(time.Millisecond),
		NodesComputed:   n,
		NodeType:        typ,
		Timestamp:       time.Now().UTC(),
	}
}

// NewResults returns empty results stamped with a fresh run id.
//
func NewResults() *Results {
	return &Results{
		RunID:  uuid.NewString(),
		Cells:  make(map[string]CellResult),
		Status: StatusComputed,
	}
}

// WriteResults writes r to w as indented JSON.
//
func WriteResults(w io.Writer, r *Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(r), "write results")
}

// ReadResults decodes results written by WriteResults.
//
func ReadResults(rd io.Reader) (*Results, error) {
	var r Results
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode results")
	}
	return &r, nil
}
