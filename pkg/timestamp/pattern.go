package timestamp

import (
	"fmt"
	"strings"
	"unicode"
)

// goTokens are layout fragments that time.Parse would treat as directives if they
// appeared inside literal text.
var goTokens = []string{"Jan", "Mon", "MST", "PM", "pm", "Z07", "-07", "_2"}

// textualLetters are pattern letters whose values are names (month, weekday, am/pm).
// Go only parses their English forms.
var textualLetters = map[rune]int{'M': 3, 'L': 3, 'E': 1, 'a': 1}

// Pattern is a translated java.time pattern.
type Pattern struct {
	Source  string
	Layout  string
	Textual bool // contains month/day names or an am/pm marker
}

// Layout translates a java.time DateTimeFormatter pattern such as
// "yyyy-MM-dd'T'HH:mm:ss.SSSXXX" into a Go reference layout.
func Layout(pattern string) (string, error) {
	p, err := Translate(pattern)
	if err != nil {
		return "", err
	}
	return p.Layout, nil
}

// Translate translates a java.time pattern and reports whether it needs
// localized names to parse.
func Translate(pattern string) (Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return Pattern{}, fmt.Errorf("empty date pattern")
	}

	var (
		out     strings.Builder
		literal strings.Builder
		textual bool
	)
	flush := func() error {
		if literal.Len() == 0 {
			return nil
		}
		text := literal.String()
		literal.Reset()
		if err := checkLiteral(text); err != nil {
			return err
		}
		if err := checkJoin(out.String(), text); err != nil {
			return err
		}
		out.WriteString(text)
		return nil
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		switch {
		case r == '\'':
			end, text, err := readQuoted(runes, i)
			if err != nil {
				return Pattern{}, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			literal.WriteString(text)
			i = end

		case isPatternLetter(r):
			n := 1
			for i+n < len(runes) && runes[i+n] == r {
				n++
			}
			// a fraction must follow its separator directly, so peek before flushing
			prev := lastRune(literal.String(), out.String())
			if err := flush(); err != nil {
				return Pattern{}, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			token, err := directive(r, n, prev)
			if err != nil {
				return Pattern{}, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			if err := checkJoin(out.String(), token); err != nil {
				return Pattern{}, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			if min, ok := textualLetters[r]; ok && n >= min {
				textual = true
			}
			out.WriteString(token)
			i += n

		default:
			literal.WriteRune(r)
			i++
		}
	}
	if err := flush(); err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", pattern, err)
	}

	return Pattern{Source: pattern, Layout: out.String(), Textual: textual}, nil
}

func isPatternLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func lastRune(pending, written string) rune {
	s := written + pending
	if s == "" {
		return 0
	}
	r := []rune(s)
	return r[len(r)-1]
}

// readQuoted reads a quoted literal starting at runes[start] == '\''.
// Two consecutive quotes produce a single quote character.
func readQuoted(runes []rune, start int) (int, string, error) {
	if start+1 < len(runes) && runes[start+1] == '\'' {
		return start + 2, "'", nil
	}

	var b strings.Builder
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != '\'' {
			b.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '\'' {
			b.WriteRune('\'')
			i++
			continue
		}
		return i + 1, b.String(), nil
	}
	return 0, "", fmt.Errorf("unterminated quote at position %d", start)
}

func checkLiteral(text string) error {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return fmt.Errorf("literal %q: digits in literal text are not supported", text)
		}
	}
	for _, tok := range goTokens {
		if strings.Contains(text, tok) {
			return fmt.Errorf("literal %q: ambiguous literal text", text)
		}
	}
	return nil
}

// checkJoin rejects fragments that time.Parse would read as a different
// directive once next is appended to layout: "_" before a day digit becomes the
// space-padded day "_2" ("__2" the padded year day, even before a year), and
// "Jan"/"Mon" followed by literal text can become "January"/"Monday".
func checkJoin(layout, next string) error {
	switch {
	case strings.HasSuffix(layout, "__") && strings.HasPrefix(next, "2"):
		return fmt.Errorf("'__' directly before %q reads as a padded day of year", next)
	case strings.HasSuffix(layout, "_") && strings.HasPrefix(next, "2") && !strings.HasPrefix(next, "2006"):
		return fmt.Errorf("'_' directly before %q reads as a space-padded day", next)
	case strings.HasSuffix(layout, "Jan") && strings.HasPrefix(next, "uary"),
		strings.HasSuffix(layout, "Mon") && strings.HasPrefix(next, "day"):
		return fmt.Errorf("literal %q after a short name reads as a full name", next)
	}
	return nil
}

// directive maps a run of n identical pattern letters to a Go layout fragment.
func directive(letter rune, n int, prev rune) (string, error) {
	unsupported := fmt.Errorf("unsupported pattern field %q", strings.Repeat(string(letter), n))

	switch letter {
	case 'y', 'u':
		if n == 2 {
			return "06", nil
		}
		return "2006", nil
	case 'M', 'L':
		switch n {
		case 1:
			return "1", nil
		case 2:
			return "01", nil
		case 3:
			return "Jan", nil
		case 4:
			return "January", nil
		}
	case 'd':
		switch n {
		case 1:
			return "2", nil
		case 2:
			return "02", nil
		}
	case 'D':
		if n == 3 {
			return "002", nil
		}
	case 'H':
		if n <= 2 {
			return "15", nil
		}
	case 'h':
		switch n {
		case 1:
			return "3", nil
		case 2:
			return "03", nil
		}
	case 'm':
		switch n {
		case 1:
			return "4", nil
		case 2:
			return "04", nil
		}
	case 's':
		switch n {
		case 1:
			return "5", nil
		case 2:
			return "05", nil
		}
	case 'S':
		if n <= 9 && (prev == '.' || prev == ',') {
			return strings.Repeat("0", n), nil
		}
		if n <= 9 {
			return "", fmt.Errorf("fraction %q must follow '.' or ','", strings.Repeat("S", n))
		}
	case 'a':
		if n == 1 {
			return "PM", nil
		}
	case 'E':
		switch {
		case n <= 3:
			return "Mon", nil
		case n == 4:
			return "Monday", nil
		}
	case 'X':
		switch n {
		case 1:
			return "Z07", nil
		case 2:
			return "Z0700", nil
		case 3:
			return "Z07:00", nil
		}
	case 'x':
		switch n {
		case 1:
			return "-07", nil
		case 2:
			return "-0700", nil
		case 3:
			return "-07:00", nil
		}
	case 'Z':
		switch {
		case n <= 3:
			return "-0700", nil
		case n == 5:
			return "Z07:00", nil
		}
	case 'z':
		if n <= 3 {
			return "MST", nil
		}
	}
	return "", unsupported
}
