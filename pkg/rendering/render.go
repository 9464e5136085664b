/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: render.go
Description: Renders field cells under a rendering type for display and export.
*/

package rendering

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/kleascm/protoinfer/pkg/core"
)

// Render presents a cell under the given rendering type.
// A type that is not legal for the cell falls back to hex.
func Render(cell []byte, t core.RenderingType) string {
	switch t {
	case core.RenderNum, core.RenderAlpha, core.RenderAlphaNum:
		if IsLegal([][]byte{cell}, t) {
			return string(cell)
		}
	case core.RenderASCII:
		return Printable(cell)
	case core.RenderBase64Enc:
		if _, err := base64.StdEncoding.DecodeString(string(cell)); err == nil {
			return string(cell)
		}
	case core.RenderBase64Dec:
		if decoded, err := base64.StdEncoding.DecodeString(string(cell)); err == nil {
			return hex.EncodeToString(decoded)
		}
	}
	return hex.EncodeToString(cell)
}

// Printable maps printable ASCII to itself and everything else to '.'
func Printable(cell []byte) string {
	var b strings.Builder
	b.Grow(len(cell))
	for _, c := range cell {
		if c >= 0x20 && c <= 0x7e {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// RenderAll renders every cell with the same type
func RenderAll(cells [][]byte, t core.RenderingType) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Render(c, t)
	}
	return out
}
