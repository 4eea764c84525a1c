// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package pattern parses textual role patterns.
//
// A pattern is a comma separated list of items. An item is either a role name,
// optionally repeated with "*n", or an explicit assignment of a role to a node
// index or inclusive index range:
//
//	worker, comm*2, kernel    // cycle of 4 roles: worker comm comm kernel
//	cyclic                    // all six roles in declaration order
//	cyclic, 0..9=kernel, 42=vector
//
// Roles not covered by an explicit assignment follow the cycle. A pattern
// with no cycle defaults to worker.
//
package pattern

import (
	"strconv"
	"strings"

	"github.com/db47h/dase"
	"github.com/pkg/errors"
)

// the all-roles cycle keyword.
const cyclic = "cyclic"

// MaxRepeat is the largest accepted repeat count.
const MaxRepeat = dase.DefaultCapacity

type assignment struct {
	start, end int
	role       dase.Role
}

// A Pattern maps node indices to roles.
//
type Pattern struct {
	Input  string
	cycle  []dase.Role
	assign []assignment
}

// Parse parses a pattern string.
//
func Parse(input string) (*Pattern, error) {
	p := &Pattern{Input: input}
	l := newLexer(input)

	i := l.Lex()
	if i.Type == EOF {
		return p, nil
	}
	for {
		var err error
		switch i.Type {
		case Ident:
			i, err = p.cycleItem(l, i)
		case Int:
			i, err = p.assignItem(l, i)
		case Error:
			err = parseError(input, i.Pos, i.String())
		default:
			err = parseError(input, i.Pos, "expected role name or node index, got "+i.String())
		}
		if err != nil {
			return nil, err
		}
		switch i.Type {
		case EOF:
			return p, nil
		case Comma:
			i = l.Lex()
			continue
		}
		return nil, parseError(input, i.Pos, "expected comma or end of input, got "+i.String())
	}
}

func (p *Pattern) role(i Item) (dase.Role, error) {
	r, err := dase.ParseRole(i.Value.(string))
	if err != nil {
		return 0, parseError(p.Input, i.Pos, err.Error())
	}
	return r, nil
}

// cycleItem parses role ['*' int]. i is the role name.
func (p *Pattern) cycleItem(l *lexer, i Item) (Item, error) {
	var roles []dase.Role
	if strings.EqualFold(i.Value.(string), cyclic) {
		roles = dase.Roles[:]
	} else {
		r, err := p.role(i)
		if err != nil {
			return i, err
		}
		roles = []dase.Role{r}
	}
	i = l.Lex()
	n := 1
	if i.Type == Star {
		i = l.Lex()
		v, err := p.intValue(i, "repeat count expected after '*'")
		if err != nil {
			return i, err
		}
		switch {
		case v <= 0:
			return i, parseError(p.Input, i.Pos, "repeat count must be positive")
		case v > MaxRepeat:
			return i, parseError(p.Input, i.Pos, "repeat count "+strconv.Itoa(v)+" exceeds "+strconv.Itoa(MaxRepeat))
		}
		n = v
		i = l.Lex()
	}
	for ; n > 0; n-- {
		p.cycle = append(p.cycle, roles...)
	}
	return i, nil
}

// assignItem parses int ['..' int] '=' role. i is the first index.
func (p *Pattern) assignItem(l *lexer, i Item) (Item, error) {
	start := i.Value.(int)
	end := start
	i = l.Lex()
	if i.Type == Range {
		i = l.Lex()
		v, err := p.intValue(i, "integer value expected after '..'")
		if err != nil {
			return i, err
		}
		if end = v; end < start {
			return i, parseError(p.Input, i.Pos, "range end before range start")
		}
		i = l.Lex()
	}
	if i.Type != Equal {
		return i, parseError(p.Input, i.Pos, "'=' expected after node index or range")
	}
	i = l.Lex()
	if i.Type != Ident {
		return i, parseError(p.Input, i.Pos, "role name expected after '='")
	}
	r, err := p.role(i)
	if err != nil {
		return i, err
	}
	p.assign = append(p.assign, assignment{start, end, r})
	return l.Lex(), nil
}

// intValue returns the value of integer item i, or an error with message msg
// if i is not an integer.
func (p *Pattern) intValue(i Item, msg string) (int, error) {
	switch i.Type {
	case Int:
		return i.Value.(int), nil
	case Error:
		return 0, parseError(p.Input, i.Pos, i.String())
	}
	return 0, parseError(p.Input, i.Pos, msg)
}

// At returns the role of node i. Explicit assignments take precedence over the
// cycle; among assignments, the last one covering i wins.
//
func (p *Pattern) At(i int) dase.Role {
	for k := len(p.assign) - 1; k >= 0; k-- {
		if a := p.assign[k]; a.start <= i && i <= a.end {
			return a.role
		}
	}
	if len(p.cycle) == 0 {
		return dase.Worker
	}
	return p.cycle[i%len(p.cycle)]
}

// Cycle returns the role cycle.
//
func (p *Pattern) Cycle() []dase.Role { return p.cycle }

func parseError(in string, pos int, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}
