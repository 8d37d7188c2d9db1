package regex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	m, err := Compile("a{3}", "")
	require.NoError(t, err)
	require.True(t, m.MatchString("ooaaaoo"))
	require.False(t, m.MatchString("ooaaoo"))
}

func TestCaseInsensitiveFlag(t *testing.T) {
	m, err := Compile("HELLO", "i")
	require.NoError(t, err)
	require.True(t, m.MatchString("say hello there"))
}

func TestFreeSpacingFlag(t *testing.T) {
	m, err := Compile(`\d+ # a run of digits
	                    -       \d+`, "x")
	require.NoError(t, err)
	require.True(t, m.MatchString("12-34"))
}

func TestReplaceAllString(t *testing.T) {
	m, err := Compile(`(\w+)@(\w+)`, "")
	require.NoError(t, err)
	require.Equal(t, "bob at example", m.ReplaceAllString("bob@example", "${1} at ${2}"))
}

func TestCompileIsCached(t *testing.T) {
	a, err := Compile("x+", "i")
	require.NoError(t, err)
	b, err := Compile("x+", "i")
	require.NoError(t, err)
	require.Same(t, a, b)
}
