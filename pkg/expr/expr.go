// Package expr evaluates the small expressions found in meta ini files:
// the conditions of exclude and label lines and the arithmetic of the eval
// command. Expressions are parsed and evaluated as HCL expressions.
//
// Conditions accept the Python-like spelling used in meta ini files
// (and, or, not, True, False, single quotes). Bare words that are not
// numbers stand for themselves, so `ug == ug` is true.
package expr

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/arthur-debert/metaini/pkg/errors"
)

var replacements = []struct {
	pattern *regexp.Regexp
	with    string
}{
	{regexp.MustCompile(`'([^']*)'`), `"$1"`},
	{regexp.MustCompile(`\band\b`), "&&"},
	{regexp.MustCompile(`\bor\b`), "||"},
	{regexp.MustCompile(`\bTrue\b`), "true"},
	{regexp.MustCompile(`\bFalse\b`), "false"},
}

var notWord = regexp.MustCompile(`\bnot\b`)

// negate rewrites `not x` as `!(x)`. The operand runs up to the next and,
// or, comma or unmatched closing bracket, so not binds looser than the
// comparisons it negates.
func negate(src string) string {
	if !notWord.MatchString(src) {
		return src
	}
	tokens, diags := hclsyntax.LexExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return src
	}

	var b strings.Builder
	var pending []int
	depth, prev := 0, 0
	closeAt := func(d int) {
		for len(pending) > 0 && pending[len(pending)-1] == d {
			b.WriteString(")")
			pending = pending[:len(pending)-1]
		}
	}

	for _, t := range tokens {
		start, end := t.Range.Start.Byte, t.Range.End.Byte
		b.WriteString(src[prev:start])
		prev = end

		switch t.Type {
		case hclsyntax.TokenAnd, hclsyntax.TokenOr, hclsyntax.TokenComma,
			hclsyntax.TokenNewline, hclsyntax.TokenEOF:
			closeAt(depth)
		case hclsyntax.TokenCParen, hclsyntax.TokenCBrack:
			closeAt(depth)
			depth--
		case hclsyntax.TokenOParen, hclsyntax.TokenOBrack:
			depth++
		case hclsyntax.TokenIdent:
			if string(t.Bytes) == "not" {
				b.WriteString("!(")
				pending = append(pending, depth)
				continue
			}
		}
		b.WriteString(src[start:end])
	}
	closeAt(depth)
	return b.String()
}

// Functions are the functions available to every expression.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"abs":   stdlib.AbsoluteFunc,
		"ceil":  stdlib.CeilFunc,
		"floor": stdlib.FloorFunc,
		"log":   stdlib.LogFunc,
		"max":   stdlib.MaxFunc,
		"min":   stdlib.MinFunc,
		"pow":   stdlib.PowFunc,
	}
}

func parse(src string) (hclsyntax.Expression, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, errors.ErrParameter, "cannot parse expression %q", src).
			WithDetail("expression", src)
	}
	return e, nil
}

// Eval parses src and evaluates it with vars bound as variables.
func Eval(src string, vars map[string]cty.Value) (cty.Value, error) {
	e, err := parse(src)
	if err != nil {
		return cty.NilVal, err
	}
	return eval(src, e, vars)
}

func eval(src string, e hclsyntax.Expression, vars map[string]cty.Value) (cty.Value, error) {
	ctx := &hcl.EvalContext{Variables: vars, Functions: Functions()}
	v, diags := e.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, errors.Wrapf(diags, errors.ErrParameter, "cannot evaluate expression %q", src).
			WithDetail("expression", src)
	}
	return v, nil
}

// Bool evaluates a condition. Bare words evaluate to their own name.
// Numbers are true when non-zero, strings when non-empty.
func Bool(src string) (bool, error) {
	for _, r := range replacements {
		src = r.pattern.ReplaceAllString(src, r.with)
	}
	src = negate(src)

	e, err := parse(src)
	if err != nil {
		return false, err
	}

	vars := make(map[string]cty.Value)
	for _, traversal := range e.Variables() {
		name := traversal.RootName()
		if len(traversal) > 1 {
			return false, errors.Newf(errors.ErrParameter,
				"cannot evaluate %q: dotted name %q", src, name).WithDetail("expression", src)
		}
		vars[name] = cty.StringVal(name)
	}

	v, err := eval(src, e, vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	case cty.String:
		return v.AsString() != ""
	default:
		if v.Type().IsCollectionType() || v.Type().IsTupleType() {
			return v.LengthInt() > 0
		}
		return true
	}
}

// Number evaluates an arithmetic expression and formats the result. The
// constant pi is known in any letter case. Powers are written a ^ b,
// a ** b or pow(a, b).
func Number(src string) (string, error) {
	rewritten, err := rewritePowers(src)
	if err != nil {
		return "", err
	}

	vars := map[string]cty.Value{
		"pi": cty.NumberFloatVal(math.Pi),
		"Pi": cty.NumberFloatVal(math.Pi),
		"PI": cty.NumberFloatVal(math.Pi),
	}
	v, err := Eval(rewritten, vars)
	if err != nil {
		return "", err
	}
	if v.IsNull() || v.Type() != cty.Number {
		return "", errors.Newf(errors.ErrParameter, "expression %q is not a number", src).
			WithDetail("expression", src)
	}
	return FormatNumber(v), nil
}

// FormatNumber renders a number without a decimal part when it is whole.
func FormatNumber(v cty.Value) string {
	bf := v.AsBigFloat()
	if bf.IsInt() {
		i, _ := bf.Int(nil)
		return i.String()
	}
	f, _ := bf.Float64()
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type piece struct {
	text string
	typ  hclsyntax.TokenType
	pow  bool
}

// rewritePowers turns `a ** b` and `a ^ b` into pow(a, b). Powers bind
// tighter than any other operator and associate to the right.
func rewritePowers(src string) (string, error) {
	src = strings.ReplaceAll(src, "^", "**")
	if !strings.Contains(src, "**") {
		return src, nil
	}

	tokens, diags := hclsyntax.LexExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return "", errors.Wrapf(diags, errors.ErrParameter, "cannot parse expression %q", src)
	}

	var pieces []piece
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Type == hclsyntax.TokenEOF {
			break
		}
		if t.Type == hclsyntax.TokenStar && i+1 < len(tokens) &&
			tokens[i+1].Type == hclsyntax.TokenStar &&
			tokens[i+1].Range.Start.Byte == t.Range.End.Byte {
			pieces = append(pieces, piece{text: "**", pow: true})
			i++
			continue
		}
		pieces = append(pieces, piece{text: string(t.Bytes), typ: t.Type})
	}

	for {
		k := -1
		for i := len(pieces) - 1; i >= 0; i-- {
			if pieces[i].pow {
				k = i
				break
			}
		}
		if k < 0 {
			break
		}

		l := operandStart(pieces, k-1)
		r := operandEnd(pieces, k+1)
		if l < 0 || r < 0 {
			return "", errors.Newf(errors.ErrParameter, "missing operand for power in %q", src).
				WithDetail("expression", src)
		}
		atom := piece{
			text: "pow(" + join(pieces[l:k]) + ", " + join(pieces[k+1:r+1]) + ")",
			typ:  hclsyntax.TokenNumberLit,
		}
		rest := append([]piece{atom}, pieces[r+1:]...)
		pieces = append(pieces[:l], rest...)
	}
	return join(pieces), nil
}

func join(pieces []piece) string {
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.text
	}
	return strings.Join(texts, " ")
}

func operandStart(pieces []piece, i int) int {
	if i < 0 {
		return -1
	}
	switch pieces[i].typ {
	case hclsyntax.TokenNumberLit, hclsyntax.TokenIdent:
		return i
	case hclsyntax.TokenCParen:
		depth := 0
		for j := i; j >= 0; j-- {
			switch pieces[j].typ {
			case hclsyntax.TokenCParen:
				depth++
			case hclsyntax.TokenOParen:
				depth--
			}
			if depth == 0 {
				if j > 0 && pieces[j-1].typ == hclsyntax.TokenIdent {
					return j - 1
				}
				return j
			}
		}
	}
	return -1
}

func operandEnd(pieces []piece, i int) int {
	if i >= len(pieces) {
		return -1
	}
	switch pieces[i].typ {
	case hclsyntax.TokenMinus:
		return operandEnd(pieces, i+1)
	case hclsyntax.TokenNumberLit:
		return i
	case hclsyntax.TokenIdent:
		if i+1 < len(pieces) && pieces[i+1].typ == hclsyntax.TokenOParen {
			return closingParen(pieces, i+1)
		}
		return i
	case hclsyntax.TokenOParen:
		return closingParen(pieces, i)
	}
	return -1
}

func closingParen(pieces []piece, i int) int {
	depth := 0
	for j := i; j < len(pieces); j++ {
		switch pieces[j].typ {
		case hclsyntax.TokenOParen:
			depth++
		case hclsyntax.TokenCParen:
			depth--
		}
		if depth == 0 {
			return j
		}
	}
	return -1
}
