/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: edit.go
Description: Structural edits on field grammars: absorbing stray single bytes into the
surrounding variable region, merging neighbouring fields, and splitting literals.
Every edit returns a new slice and leaves its input unchanged.
*/

package grammar

import (
	"fmt"

	"github.com/kleascm/protoinfer/pkg/core"
)

// Slick folds every VARIABLE, one-byte LITERAL, VARIABLE triple into a single
// VARIABLE field until no such triple remains.
func Slick(fields []core.Field) []core.Field {
	out := cloneFields(fields)
	for changed := true; changed; {
		changed = false
		for i := 0; i+2 < len(out); i++ {
			a, b, c := out[i].Token, out[i+1].Token, out[i+2].Token
			if a.IsVariable() && !b.IsVariable() && len(b.Literal) == 1 && c.IsVariable() {
				out[i].Token = core.Variable(a.MaxLength + 1 + c.MaxLength)
				out = append(out[:i+1], out[i+3:]...)
				changed = true
				break
			}
		}
	}
	return out
}

// Concat merges field i with field i+1. Two literals stay literal; anything else
// becomes a variable field as wide as both. The merged field keeps the name and type
// of field i.
func Concat(fields []core.Field, i int) ([]core.Field, error) {
	if i < 0 || i+1 >= len(fields) {
		return nil, fmt.Errorf("%w: cannot merge %d with its successor in %d fields", core.ErrFieldIndex, i, len(fields))
	}
	out := cloneFields(fields)
	a, b := out[i].Token, out[i+1].Token
	if !a.IsVariable() && !b.IsVariable() {
		joined := append(append([]byte{}, a.Literal...), b.Literal...)
		out[i].Token = core.Literal(joined)
	} else {
		out[i].Token = core.Variable(a.Width() + b.Width())
	}
	out = append(out[:i+1], out[i+2:]...)
	return joinVariables(out), nil
}

// Split cuts literal field i at a byte offset. The right half is named after the
// left with a "_split" suffix.
func Split(fields []core.Field, i, offset int) ([]core.Field, error) {
	if i < 0 || i >= len(fields) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", core.ErrFieldIndex, i, len(fields))
	}
	tok := fields[i].Token
	if tok.IsVariable() {
		return nil, fmt.Errorf("field %d is variable and cannot be split", i)
	}
	if offset <= 0 || offset >= len(tok.Literal) {
		return nil, fmt.Errorf("split offset %d outside (0,%d)", offset, len(tok.Literal))
	}
	left := fields[i]
	left.Token = core.Literal(tok.Literal[:offset])
	right := fields[i]
	right.Name = fields[i].Name + "_split"
	right.Token = core.Literal(tok.Literal[offset:])

	out := make([]core.Field, 0, len(fields)+1)
	out = append(out, fields[:i]...)
	out = append(out, left, right)
	out = append(out, fields[i+1:]...)
	return cloneFields(out), nil
}

// joinVariables merges adjacent variable fields into the left one
func joinVariables(fields []core.Field) []core.Field {
	out := fields[:0]
	for _, f := range fields {
		if n := len(out); n > 0 && out[n-1].Token.IsVariable() && f.Token.IsVariable() {
			out[n-1].Token = core.Variable(out[n-1].Token.MaxLength + f.Token.MaxLength)
			continue
		}
		out = append(out, f)
	}
	return out
}

func cloneFields(fields []core.Field) []core.Field {
	out := make([]core.Field, len(fields))
	for i, f := range fields {
		out[i] = f
		if !f.Token.IsVariable() {
			out[i].Token = core.Literal(f.Token.Literal)
		}
	}
	return out
}
