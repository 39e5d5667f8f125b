package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":\"}\"}\n```", `{"a":"}"}`, true},
		{"prose around", `Here you go: {"a":{"b":[1,2]}} hope it helps`, `{"a":{"b":[1,2]}}`, true},
		{"array only", `[1,2,3]`, "", false},
		{"unterminated", `{"a":1`, "", false},
		{"empty", "  ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractObject(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPretty(t *testing.T) {
	out := Pretty(` {"a":1,"b":"x"} `)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": \"x\"\n}", out)
	assert.Equal(t, "not json", Pretty(" not json "))
	assert.Equal(t, "", Pretty("   "))
}
