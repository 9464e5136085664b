/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: classifier.go
Description: Byte type classification for field cells. Decides which rendering types are
legal for every value observed at one field position.
*/

package rendering

import (
	"encoding/base64"

	"github.com/kleascm/protoinfer/pkg/core"
)

// Classify returns the rendering types legal for all cells, in core.RenderingOrder.
// Binary is always legal. Character classes are judged on the set of distinct bytes
// across every cell; base64 is judged cell by cell.
func Classify(cells [][]byte) []core.RenderingType {
	var seen [256]bool
	distinct := 0
	for _, c := range cells {
		for _, b := range c {
			if !seen[b] {
				seen[b] = true
				distinct++
			}
		}
	}
	if distinct == 0 {
		return []core.RenderingType{core.RenderBinary}
	}

	num, alpha, alnum, ascii := true, true, true, true
	for v := 0; v < 256; v++ {
		if !seen[v] {
			continue
		}
		b := byte(v)
		d, l := isDigit(b), isLetter(b)
		num = num && d
		alpha = alpha && l
		alnum = alnum && (d || l)
		ascii = ascii && b < 0x80
	}

	var out []core.RenderingType
	if num {
		out = append(out, core.RenderNum)
	}
	if alpha {
		out = append(out, core.RenderAlpha)
	}
	if alnum {
		out = append(out, core.RenderAlphaNum)
	}
	if ascii {
		out = append(out, core.RenderASCII)
	}
	if allBase64(cells) {
		out = append(out, core.RenderBase64Enc, core.RenderBase64Dec)
	}
	return append(out, core.RenderBinary)
}

// IsLegal reports whether t is among the legal types for cells
func IsLegal(cells [][]byte, t core.RenderingType) bool {
	for _, legal := range Classify(cells) {
		if legal == t {
			return true
		}
	}
	return false
}

func allBase64(cells [][]byte) bool {
	for _, c := range cells {
		decoded, err := base64.StdEncoding.DecodeString(string(c))
		if err != nil || len(decoded) == 0 {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
