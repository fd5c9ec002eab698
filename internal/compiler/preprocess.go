package compiler

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// keywords are the statement keywords recognized at the start of a line.
var keywords = map[string]bool{
	"SET":           true,
	"COLOR":         true,
	"PARTICLES":     true,
	"CONTOUR":       true,
	"LABEL":         true,
	"DEF":           true,
	"PLOT3D":        true,
	"PLOT_VECFIELD": true,
	"PLOT_TENSOR":   true,
	"ANIMATE":       true,
}

// line is one logical statement and the 1-based line it starts on.
type line struct {
	num  int
	text string
}

// leadingKeyword returns the upper-cased first word of s.
func leadingKeyword(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// preprocess turns source text into logical lines:
//  1. NFC-normalize and split on newlines
//  2. strip # comments outside quotes
//  3. join lines ending in a backslash with the next line
//  4. append non-keyword lines to a preceding DEF
//
// Blank lines are dropped.
func preprocess(src string) []line {
	src = norm.NFC.String(src)
	src = strings.ReplaceAll(src, "\r\n", "\n")
	physical := strings.Split(src, "\n")

	var joined []line
	var pending *line
	for i, raw := range physical {
		text := strings.TrimSpace(stripComment(raw))
		cont := strings.HasSuffix(text, `\`)
		if cont {
			text = strings.TrimSpace(strings.TrimSuffix(text, `\`))
		}

		if pending != nil {
			if text != "" {
				pending.text += " " + text
			}
		} else {
			pending = &line{num: i + 1, text: text}
		}
		if cont {
			continue
		}
		if pending.text != "" {
			joined = append(joined, *pending)
		}
		pending = nil
	}
	if pending != nil && pending.text != "" {
		joined = append(joined, *pending)
	}

	var out []line
	for _, ln := range joined {
		n := len(out)
		if n > 0 && leadingKeyword(out[n-1].text) == "DEF" && !keywords[leadingKeyword(ln.text)] {
			out[n-1].text += " " + ln.text
			continue
		}
		out = append(out, ln)
	}
	return out
}

// stripComment removes everything from the first # that is not inside a
// quoted string.
func stripComment(s string) string {
	var quote rune
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '#':
			return s[:i]
		}
	}
	return s
}
