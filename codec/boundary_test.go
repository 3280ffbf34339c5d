package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"mime-stream/util/rule"
)

func TestRandomBoundary(t *testing.T) {
	first, second := RandomBoundary(), RandomBoundary()

	assert.True(t, rule.IsValidBoundary(first))
	assert.NotEqual(t, first, second)
}

func TestExtractBoundary(t *testing.T) {
	testcases := []struct {
		desc  string
		line  string
		token string
		found bool
	}{
		{
			desc:  "plain parameter",
			line:  "content-type:mixed/multipart;boundary=tok",
			token: "tok",
			found: true,
		},
		{
			desc:  "quoted token with trailing parameter",
			line:  `Content-Type: multipart/related; boundary="tok"; charset=UTF-8`,
			token: "tok",
			found: true,
		},
		{
			desc:  "multibyte runes before the parameter",
			line:  strings.Repeat("Ⱥ", 10) + "boundary=tok",
			token: "tok",
			found: true,
		},
		{
			desc: "upper-case parameter name",
			line: "content-type:mixed/multipart;BOUNDARY=tok",
		},
		{
			desc: "mixed-case parameter name",
			line: "Content-Type: multipart/related; Boundary=tok",
		},
		{
			desc: "no parameter",
			line: "content-length: 42",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			token, found := extractBoundary(tc.line)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.token, token)
		})
	}
}
