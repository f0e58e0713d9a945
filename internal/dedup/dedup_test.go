// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := New()
	assert.False(t, s.Seen("W1"))
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Mark("W1"))
	assert.True(t, s.Seen("W1"))
	assert.False(t, s.Mark("W1"), "second mark is not new")
	assert.False(t, s.Seen("W2"))
	assert.Equal(t, 1, s.Len())
}

func TestSet_IndependentRuns(t *testing.T) {
	a, b := New(), New()
	a.Mark("W1")
	assert.False(t, b.Seen("W1"))
}
