package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Target identifies a code-generation target language for literal rendering.
type Target string

// TargetPython is the only target shipped today; new targets are added by
// registering a rule table in literalRules.
const TargetPython Target = "python"

// ErrUnsupportedValueType is returned when a Value variant has no rendering
// rule for the requested target. The serializer never guesses: an uncovered
// variant is a hard error, not a stringified fallback.
var ErrUnsupportedValueType = errors.New("unsupported value type for target language")

// ErrUnknownTarget is returned for targets with no registered rule table.
var ErrUnknownTarget = errors.New("unknown target language")

// literalTable holds the fixed spellings of a target language; compound
// variants (list, map) are rendered structurally by ToSourceLiteral.
type literalTable struct {
	null     string
	trueLit  string
	falseLit string
}

var literalRules = map[Target]literalTable{
	TargetPython: {null: "None", trueLit: "True", falseLit: "False"},
}

// ToSourceLiteral renders a Value as a source-code literal of the target
// language. Map entries are rendered in insertion order.
func ToSourceLiteral(v Value, target Target) (string, error) {
	rules, ok := literalRules[target]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	return toLiteral(v, rules)
}

func toLiteral(v Value, rules literalTable) (string, error) {
	switch v.kind {
	case KindNull:
		return rules.null, nil
	case KindBool:
		if v.b {
			return rules.trueLit, nil
		}
		return rules.falseLit, nil
	case KindNumber:
		// Always decimal form; exponent notation would change meaning for
		// targets that distinguish ints from floats by spelling.
		return strconv.FormatFloat(v.n, 'f', -1, 64), nil
	case KindString:
		return quote(v.s), nil
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, elem := range v.list {
			lit, err := toLiteral(elem, rules)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case KindMap:
		parts := make([]string, 0, v.m.Len())
		for p := v.m.Oldest(); p != nil; p = p.Next() {
			lit, err := toLiteral(p.Value, rules)
			if err != nil {
				return "", err
			}
			parts = append(parts, quote(p.Key)+": "+lit)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedValueType, v.kind)
	}
}

// quote renders a double-quoted string literal escaping backslashes and
// quotes. The same spelling is valid in every currently supported target.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
