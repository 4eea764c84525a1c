// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/db47h/dase"
	"github.com/db47h/dase/bridge"
	"github.com/db47h/dase/dasetest"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = `{"cells":{
	"A1":{"formula":"=AMP(4.0,2.5)"},
	"B1":{"formula":"=amp(6, 1.5)"},
	"C1":{"formula":"=SUM(1, 2, 3.5)"},
	"D1":{"formula":"=INT(5)"},
	"E1":{"formula":"=UNI(2, 0.25)"},
	"F1":{"value":7},
	"G1":{"formula":"=FOO(1)"}
}}`

func TestSheet_compute(t *testing.T) {
	s, err := bridge.ParseSheet(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, s.Cells, 7)

	r := s.Compute()
	_, err = uuid.Parse(r.RunID)
	require.NoError(t, err)

	exp := map[string]float64{"A1": 10, "B1": 9, "C1": 6.5, "D1": 0.05, "E1": 2.5}
	for ref, v := range exp {
		c := r.Cells[ref]
		assert.True(t, c.Computed, ref)
		assert.InDelta(t, v, c.Value, 1e-12, ref)
	}
	assert.Equal(t, bridge.CellResult{Value: 7}, r.Cells["F1"])
	assert.False(t, r.Cells["G1"].Computed)
	assert.Equal(t, `unknown function "FOO"`, r.Cells["G1"].Error)
	assert.Equal(t, bridge.StatusFailed, r.Status)
	assert.Equal(t, 5, r.Performance.NodesComputed)
	assert.Equal(t, "analog", r.Performance.NodeType)
}

func TestParseSheet_invalid(t *testing.T) {
	_, err := bridge.ParseSheet(strings.NewReader(`{"cells":`))
	assert.Error(t, err)

	s, err := bridge.ParseSheet(strings.NewReader(`{}`))
	require.NoError(t, err)
	r := s.Compute()
	assert.Empty(t, r.Cells)
	assert.Equal(t, bridge.StatusComputed, r.Status)
}

func TestParseFormula(t *testing.T) {
	f, err := bridge.ParseFormula(" =Sum( 1,-2.5 , 3e2 ) ")
	require.NoError(t, err)
	assert.Equal(t, bridge.Formula{Func: "SUM", Args: []float64{1, -2.5, 300}}, f)

	for _, in := range []string{"AMP(1,2)", "=AMP", "=AMP(1,2", "=(1)", "=AMP(1,x)", "=AMP(1,,2)"} {
		_, err := bridge.ParseFormula(in)
		assert.Error(t, err, in)
	}
	for _, in := range []string{"=AMP(1)", "=AMP(1,2,3)", "=SUM()", "=INT(1,2,3)", "=UNI(1)"} {
		f, err := bridge.ParseFormula(in)
		require.NoError(t, err, in)
		_, err = f.Eval("x")
		assert.Error(t, err, in)
	}
}

func TestDrive(t *testing.T) {
	s := dase.NewSession(dase.NewEngine(16, 2))
	defer s.Close()

	r, err := bridge.Drive(context.Background(), s, bridge.Job{Name: "three", Nodes: 3, Inputs: []float64{2.0}})
	require.NoError(t, err)
	assert.Equal(t, "three", r.Name)
	assert.InDelta(t, 2.121, r.Cells[bridge.WaveRef(0)].Value, 1e-12)
	assert.Equal(t, "A1", bridge.WaveRef(0))
	require.Len(t, r.Nodes, 3)
	assert.Equal(t, dase.Worker, r.Nodes[2].Role)
	assert.InDelta(t, 2.2*1.01, r.Nodes[2].Value, 1e-12)
	assert.Equal(t, 3, r.Performance.NodesComputed)
	assert.Equal(t, "universal", r.Performance.NodeType)
}

// Drive and dasetest.Exec apply the same pattern rotation, so their outputs
// must match bit for bit.
func TestDrive_rotation(t *testing.T) {
	run := dasetest.Run{
		Nodes:       50,
		Pattern:     dase.CyclicRoles,
		SwitchEvery: 3,
		Inputs:      dasetest.RandomInputs(7, 10),
	}
	exp := dasetest.Exec(t, 3, run)

	s := dase.NewSession(dase.NewEngine(64, 5))
	defer s.Close()
	r, err := bridge.Drive(context.Background(), s, bridge.Job{
		Nodes:       run.Nodes,
		Pattern:     run.Pattern,
		Inputs:      run.Inputs,
		SwitchEvery: run.SwitchEvery,
	})
	require.NoError(t, err)
	for w, v := range exp {
		got := r.Cells[bridge.WaveRef(w)].Value
		assert.Equal(t, math.Float64bits(v), math.Float64bits(got), "wave %d: %v != %v", w, v, got)
	}
	assert.NotZero(t, r.Performance.RoleSwitches)
}

func TestDrive_canceled(t *testing.T) {
	s := dase.NewSession(dase.NewEngine(16, 1))
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bridge.Drive(ctx, s, bridge.Job{Nodes: 4, Inputs: []float64{1, 2}})
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}

func TestDrive_nonFinite(t *testing.T) {
	s := dase.NewSession(dase.NewEngine(4, 1))
	defer s.Close()

	r, err := bridge.Drive(context.Background(), s, bridge.Job{Nodes: 1, Inputs: []float64{1, math.MaxFloat64}})
	require.NoError(t, err)
	assert.True(t, r.Cells["A1"].Computed)
	assert.Equal(t, bridge.CellResult{Error: "non-finite value +Inf"}, r.Cells["A2"])
	require.Len(t, r.Nodes, 1)
	assert.Equal(t, "non-finite value +Inf", r.Nodes[0].Error)
	assert.Zero(t, r.Nodes[0].Value)
	assert.Equal(t, bridge.StatusFailed, r.Status)

	var buf bytes.Buffer
	require.NoError(t, bridge.WriteResults(&buf, r))
}

func TestSheet_nonFinite(t *testing.T) {
	s, err := bridge.ParseSheet(strings.NewReader(`{"cells":{"A1":{"formula":"=AMP(1e308, 10)"},"B1":{"formula":"=AMP(1, 2)"}}}`))
	require.NoError(t, err)
	r := s.Compute()
	assert.Equal(t, bridge.CellResult{Error: "non-finite value +Inf"}, r.Cells["A1"])
	assert.Equal(t, 1, r.Performance.NodesComputed)
	assert.Equal(t, bridge.StatusFailed, r.Status)

	var buf bytes.Buffer
	require.NoError(t, bridge.WriteResults(&buf, r))
}

func TestRunBatch(t *testing.T) {
	jobs := make([]bridge.Job, 6)
	for i := range jobs {
		jobs[i] = bridge.Job{
			Name:    string(rune('a' + i)),
			Workers: 2,
			Nodes:   10 * (i + 1),
			Pattern: dasetest.RandomPattern(int64(i), 17),
			Inputs:  dasetest.RandomInputs(int64(i), 5),
		}
	}
	res, err := bridge.RunBatch(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, res, len(jobs))
	ids := make(map[string]bool)
	for i, r := range res {
		assert.Equal(t, jobs[i].Name, r.Name)
		assert.Len(t, r.Nodes, jobs[i].Nodes)
		assert.Len(t, r.Cells, 5)
		ids[r.RunID] = true

		exp := dasetest.Exec(t, 1, dasetest.Run{Nodes: jobs[i].Nodes, Pattern: jobs[i].Pattern, Inputs: jobs[i].Inputs})
		for w, v := range exp {
			assert.Equal(t, v, r.Cells[bridge.WaveRef(w)].Value)
		}
	}
	assert.Len(t, ids, len(jobs), "run ids must be unique")

	jobs[3].Nodes = -1
	_, err = bridge.RunBatch(context.Background(), jobs)
	assert.Equal(t, dase.ErrCapacityExceeded, errors.Cause(err))
}

func TestWriteResults(t *testing.T) {
	s, err := bridge.ParseSheet(strings.NewReader(`{"cells":{"A1":{"formula":"=AMP(4.0,2.5)"}}}`))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, bridge.WriteResults(&buf, s.Compute()))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, map[string]interface{}{"value": 10.0, "computed": true}, doc["cells"].(map[string]interface{})["A1"])
	assert.Equal(t, "computed", doc["status"])
	perf := doc["performance"].(map[string]interface{})
	for _, k := range []string{"execution_time_ms", "nodes_computed", "node_type", "timestamp"} {
		assert.Contains(t, perf, k)
	}

	r, err := bridge.ReadResults(&buf)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.Cells["A1"].Value)
}
