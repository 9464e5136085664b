/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pattern.go
Description: Textual form of grammar tokens used for persistence and display. Variable
tokens are written as (.{,N}) and literal tokens as lowercase hex.
*/

package grammar

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/protoinfer/pkg/core"
)

const (
	variablePrefix = "(.{,"
	variableSuffix = "})"
)

// TokenPattern renders one token
func TokenPattern(t core.Token) string {
	if t.IsVariable() {
		return variablePrefix + strconv.Itoa(t.MaxLength) + variableSuffix
	}
	return hex.EncodeToString(t.Literal)
}

// Pattern renders the whole grammar of a field list
func Pattern(fields []core.Field) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(TokenPattern(f.Token))
	}
	return b.String()
}

// ParseToken reads a token written by TokenPattern
func ParseToken(text string) (core.Token, error) {
	if strings.HasPrefix(text, variablePrefix) {
		if !strings.HasSuffix(text, variableSuffix) {
			return core.Token{}, fmt.Errorf("malformed variable token %q", text)
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(text, variablePrefix), variableSuffix)
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return core.Token{}, fmt.Errorf("malformed variable length in %q", text)
		}
		return core.Variable(n), nil
	}
	b, err := hex.DecodeString(text)
	if err != nil {
		return core.Token{}, fmt.Errorf("malformed literal token %q: %w", text, err)
	}
	return core.Literal(b), nil
}
