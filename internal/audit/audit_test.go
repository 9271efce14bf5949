package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"ana@example.com":   "a…@e….com",
		"A@Example.COM":     "a@e….com",
		"x@y.z":             "x@y.z",
		"sin-arroba":        "***",
		"":                  "",
		" maria@mail.test ": "m…@m….test",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), "input %q", in)
	}
}
