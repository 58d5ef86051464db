package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathsSorted(t *testing.T) {
	s := Snapshot{"b.tsx": "", "a.tsx": "", "c/d.tsx": ""}
	assert.Equal(t, []string{"a.tsx", "b.tsx", "c/d.tsx"}, s.Paths())
}

func TestCloneIsIndependent(t *testing.T) {
	s := Snapshot{"a.tsx": "original"}
	c := s.Clone()
	c["a.tsx"] = "changed"

	assert.Equal(t, "original", s["a.tsx"])
	assert.Equal(t, 1, s.Len())
}
