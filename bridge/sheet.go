// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bridge

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/dase/analog"
	"github.com/pkg/errors"
)

// A Sheet is a spreadsheet exported by a front end. Cells are keyed by their
// spreadsheet reference, e.g. "A1".
//
type Sheet struct {
	Cells map[string]Cell `json:"cells"`
}

// A Cell holds either a formula or a literal value.
//
// Supported formulas are:
//
//	=AMP(x, gain)     amplifier: x*gain
//	=SUM(x0, x1, ...) summer: x0+x1+...
//	=INT(x[, dt])     one integrator step from rest: x*dt (dt defaults to 0.01)
//	=UNI(x, control)  universal node in the mode selected by control
//
// Arguments are numeric literals.
//
type Cell struct {
	Formula string   `json:"formula,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// ParseSheet decodes a JSON sheet from r.
//
func ParseSheet(r io.Reader) (*Sheet, error) {
	var s Sheet
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode sheet")
	}
	if s.Cells == nil {
		s.Cells = make(map[string]Cell)
	}
	return &s, nil
}

// A Formula is a parsed cell formula.
//
type Formula struct {
	Func string
	Args []float64
}

// ParseFormula parses a formula of the form "=FUNC(arg, ...)". Function names
// are case insensitive.
//
func ParseFormula(s string) (Formula, error) {
	var f Formula
	in := strings.TrimSpace(s)
	if !strings.HasPrefix(in, "=") {
		return f, errors.Errorf("formula %q: missing '='", s)
	}
	in = in[1:]
	open := strings.IndexByte(in, '(')
	if open < 0 || !strings.HasSuffix(in, ")") {
		return f, errors.Errorf("formula %q: expected FUNC(args)", s)
	}
	f.Func = strings.ToUpper(strings.TrimSpace(in[:open]))
	if f.Func == "" {
		return f, errors.Errorf("formula %q: missing function name", s)
	}
	args := strings.TrimSpace(in[open+1 : len(in)-1])
	if args == "" {
		return f, nil
	}
	for i, a := range strings.Split(args, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return f, errors.Wrapf(err, "formula %q: argument %d", s, i+1)
		}
		f.Args = append(f.Args, v)
	}
	return f, nil
}

func (f Formula) arity(min, max int) error {
	if n := len(f.Args); n < min || max >= 0 && n > max {
		return errors.Errorf("%s: wrong number of arguments %d", f.Func, n)
	}
	return nil
}

// Eval evaluates f on a fresh analog module named name.
//
func (f Formula) Eval(name string) (float64, error) {
	switch f.Func {
	case "AMP":
		if err := f.arity(2, 2); err != nil {
			return 0, err
		}
		return analog.NewAmplifier(name, f.Args[1]).Process(f.Args[0]), nil
	case "SUM":
		if err := f.arity(1, -1); err != nil {
			return 0, err
		}
		return analog.NewSummer(name).ProcessInputs(f.Args...), nil
	case "INT":
		if err := f.arity(1, 2); err != nil {
			return 0, err
		}
		var dt float64
		if len(f.Args) == 2 {
			dt = f.Args[1]
		}
		return analog.NewIntegrator(name, dt).Process(f.Args[0]), nil
	case "UNI":
		if err := f.arity(2, 2); err != nil {
			return 0, err
		}
		return analog.NewUniversal(0, 0, 0, 0).ProcessSignal(f.Args[0], f.Args[1]), nil
	}
	return 0, errors.Errorf("unknown function %q", f.Func)
}

// Compute evaluates every cell of s in reference order. Literal cells are
// copied as is. A cell whose formula fails or yields a non-finite value is
// reported with Computed set to false and an error message, and marks the
// results as failed without stopping the computation.
//
func (s *Sheet) Compute() *Results {
	start := time.Now()
	r := NewResults()
	refs := make([]string, 0, len(s.Cells))
	for ref := range s.Cells {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	n := 0
	for _, ref := range refs {
		c := s.Cells[ref]
		if c.Formula == "" {
			if c.Value != nil {
				r.Cells[ref] = CellResult{Value: *c.Value}
			}
			continue
		}
		v, err := evalCell(ref, c.Formula)
		if err != nil {
			r.add(ref, CellResult{Error: err.Error()})
			continue
		}
		cr := computed(v)
		r.add(ref, cr)
		if cr.Computed {
			n++
		}
	}
	r.Performance = newPerformance(time.Since(start), n, "analog")
	return r
}

func evalCell(ref, formula string) (float64, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return 0, err
	}
	return f.Eval(ref + "_" + f.Func)
}
