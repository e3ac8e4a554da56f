package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-vectorizer/internal/models"
)

func TestClean_NormalizesWhitespace(t *testing.T) {
	cleaner := NewCleaner()

	assert.Equal(t, "hello world", cleaner.Clean("hello\r\nworld"))
	assert.Equal(t, "a b c", cleaner.Clean("  a\t\tb \n c  "))
	assert.Equal(t, "", cleaner.Clean(""))
	assert.Equal(t, "", cleaner.Clean(" \t\r\n "))
}

func TestClean_Lowercase(t *testing.T) {
	cleaner := &Cleaner{Lowercase: true}
	assert.Equal(t, "hello world", cleaner.Clean("Hello  WORLD"))
}

func TestClean_Idempotent(t *testing.T) {
	cleaner := NewCleaner()
	inputs := []string{
		"hello\r\nworld",
		"  spaced   out\ttext  ",
		"already clean",
		"",
	}
	for _, input := range inputs {
		once := cleaner.Clean(input)
		assert.Equal(t, once, cleaner.Clean(once))
	}
}

func TestCleanStream_DropsEmptyFragments(t *testing.T) {
	cleaner := NewCleaner()
	src := models.NewSliceStream("first ", " \t ", "", "second\n")

	out, err := Drain(cleaner.CleanStream(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, out)
}

func TestCleanStream_PreservesOrder(t *testing.T) {
	cleaner := NewCleaner()
	src := models.NewSliceStream("a", "b", "c")

	out, err := Drain(cleaner.CleanStream(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out)
}
