// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/dase"
	"github.com/db47h/dase/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestRoles(t *testing.T) {
	out, _, err := execute(t, "roles", "worker, comm*2, kernel", "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, "0\tworker\n1\tcomm\n2\tcomm\n3\tkernel\n4\tworker\n"+
		"# worker: 2\n# comm: 2\n# kernel: 1\n", out)

	_, _, err = execute(t, "roles", "worker*")
	assert.Error(t, err)
	_, _, err = execute(t, "roles")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	p := writeFile(t, "three.yaml", `
capacity: 16
workers: 2
nodes: 3
inputs: [2.0, 2.0]
roles: "worker, 1=kernel"
switch_every: 0
log_level: error
`)
	out, _, err := execute(t, "run", p)
	require.NoError(t, err)

	var r bridge.Results
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "three", r.Name)
	assert.Len(t, r.Cells, 2)
	require.Len(t, r.Nodes, 3)
	assert.Equal(t, dase.Kernel, r.Nodes[1].Role)
	assert.Equal(t, uint64(1), r.Performance.RoleSwitches)
	assert.Equal(t, 6, r.Performance.NodesComputed)
}

func TestRun_batch(t *testing.T) {
	a := writeFile(t, "a.yaml", "nodes: 10\nworkers: 1\ninputs: [1, 2, 3]\n")
	b := writeFile(t, "b.yaml", "nodes: 20\nworkers: 3\nroles: cyclic\nswitch_every: 1\ninputs: [1, 2]\nmetrics: true\n")
	dst := filepath.Join(t.TempDir(), "out.json")

	out, logs, err := execute(t, "run", a, b, "-o", dst, "--log-level", "info", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, logs, "serving metrics")
	assert.Contains(t, logs, "dase_waves_total")

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	dec := json.NewDecoder(f)
	for _, exp := range []struct {
		name  string
		nodes int
		waves int
	}{{"a", 10, 3}, {"b", 20, 2}} {
		var r bridge.Results
		require.NoError(t, dec.Decode(&r))
		assert.Equal(t, exp.name, r.Name)
		assert.Len(t, r.Nodes, exp.nodes)
		assert.Len(t, r.Cells, exp.waves)
	}
}

func TestRun_logLevel(t *testing.T) {
	quiet := writeFile(t, "quiet.yaml", "nodes: 2\nlog_level: error\n")
	verbose := writeFile(t, "verbose.yaml", "nodes: 2\nlog_level: debug\n")

	_, logs, err := execute(t, "run", quiet, verbose)
	require.NoError(t, err)
	assert.Contains(t, logs, "engine created")

	_, logs, err = execute(t, "run", quiet, verbose, "--log-level", "warn")
	require.NoError(t, err)
	assert.NotContains(t, logs, "engine created")
	assert.NotContains(t, logs, "run complete")

	_, logs, err = execute(t, "run", quiet)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRun_errors(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p := writeFile(t, "big.yaml", "capacity: 4\nnodes: 5\n")
	_, _, err = execute(t, "run", p)
	assert.ErrorContains(t, err, "capacity")

	_, _, err = execute(t, "run", "--log-level", "loud")
	assert.Error(t, err)
}

func TestSheet(t *testing.T) {
	p := writeFile(t, "sheet.json", `{"cells":{"A1":{"formula":"=AMP(4.0,2.5)"},"B1":{"formula":"=AMP(6.0,1.5)"}}}`)
	dst := filepath.Join(t.TempDir(), "web_results.json")

	_, logs, err := execute(t, "sheet", p, "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, logs, "sheet computed")

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	r, err := bridge.ReadResults(f)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.Cells["A1"].Value)
	assert.Equal(t, 9.0, r.Cells["B1"].Value)
	assert.Equal(t, bridge.StatusComputed, r.Status)
}
