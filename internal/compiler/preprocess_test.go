package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess(t *testing.T) {
	src := "SET RANGE X 0 TO 1  # comment\r\n\n" +
		"DEF F(x, y) = \\\n" +
		"   x + y\n" +
		"DEF V(x, y) = [\n" +
		"  x,\n" +
		"  y, 0]\n" +
		"PLOT3D F(x, y)\n"

	got := preprocess(src)
	assert.Equal(t, []line{
		{num: 1, text: "SET RANGE X 0 TO 1"},
		{num: 3, text: "DEF F(x, y) = x + y"},
		{num: 5, text: "DEF V(x, y) = [ x, y, 0]"},
		{num: 8, text: "PLOT3D F(x, y)"},
	}, got)
}

func TestPreprocessNormalizesNFC(t *testing.T) {
	got := preprocess("LABEL 'cafe\u0301' AT 0, 0, 0")
	assert.Equal(t, "LABEL 'caf\u00e9' AT 0, 0, 0", got[0].text)
}

func TestStripComment(t *testing.T) {
	tests := map[string]string{
		"PLOT3D x # note":          "PLOT3D x ",
		"LABEL '#1' AT 0, 0, 0":    "LABEL '#1' AT 0, 0, 0",
		`LABEL "a#b" AT 0, 0, 0 #`: `LABEL "a#b" AT 0, 0, 0 `,
		"# whole line":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripComment(in), in)
	}
}
