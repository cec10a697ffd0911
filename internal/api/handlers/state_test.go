package handlers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRegistryEvictsOldest(t *testing.T) {
	r := NewRunRegistry(2)
	for i := range 3 {
		r.Add(&Run{ID: fmt.Sprintf("run-%d", i)})
	}

	_, ok := r.Get("run-0")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].ID)
	assert.Equal(t, "run-1", list[1].ID)
}

func TestRunRegistryReplaceKeepsPosition(t *testing.T) {
	r := NewRunRegistry(0)
	r.Add(&Run{ID: "a"})
	r.Add(&Run{ID: "b"})
	r.Add(&Run{ID: "a"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, 32, r.limit)
}
