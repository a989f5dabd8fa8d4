package verses

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRootQuery(t *testing.T) {
	assert.Equal(t, []string{"ktb"}, ParseRootQuery("rt:ktb"))
	assert.Equal(t, []string{"ktb", "qwl"}, ParseRootQuery("rt:ktb OR rt: qwl"))
	assert.Equal(t, []string{"ك ت ب"}, ParseRootQuery(" ك ت ب "))
	assert.Nil(t, ParseRootQuery("  "))
}

func TestSplitRoots(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, SplitRoots("a, b c ,,"))
	assert.Nil(t, SplitRoots(""))
}
