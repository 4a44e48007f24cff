package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "only whitespace", input: " \t\n\r ", expected: ""},
		{name: "tabs and newlines", input: "a\tb\nc\r\nd", expected: "a b c d"},
		{name: "repeated spaces", input: "  hello    world  ", expected: "hello world"},
		{name: "unicode spaces", input: "one\u00a0two\u2003three", expected: "one two three"},
		{name: "already normal", input: "already normal", expected: "already normal"},
		{name: "invalid utf-8", input: "caf\xe9  au\xff\xfe lait", expected: "caf\uFFFD au\uFFFD lait"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "日本", Truncate("日本語", 2))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Words(" a  b\nc "))
	assert.Empty(t, Words("   "))
	assert.Equal(t, []string{"caf\uFFFD", "au", "lait"}, Words("caf\xe9 au lait"))
}
