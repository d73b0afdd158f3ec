package appinsights_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/appinsights"
)

func TestBegin_CreatesDistinctOperations(t *testing.T) {
	a := appinsights.Begin()
	b := appinsights.Begin()

	require.NotEmpty(t, a.OperationID)
	require.NotEmpty(t, b.OperationID)
	assert.NotEqual(t, a.OperationID, b.OperationID)
	assert.Empty(t, a.ParentID)
}

func TestCurrent_StableWithinOperation(t *testing.T) {
	op := appinsights.Begin()

	// Every read within the operation sees the same id.
	assert.Equal(t, op.OperationID, op.Current())
	assert.Equal(t, op.Current(), op.Current())
}

func TestChild_LinksToParent(t *testing.T) {
	parent := appinsights.Begin()
	child := parent.Child()

	assert.NotEqual(t, parent.OperationID, child.OperationID)
	assert.Equal(t, parent.OperationID, child.ParentID)

	// Deriving a child never mutates the parent.
	assert.Empty(t, parent.ParentID)
	assert.Equal(t, parent.OperationID, parent.Current())
}

func TestIsZero(t *testing.T) {
	assert.True(t, appinsights.Operation{}.IsZero())
	assert.False(t, appinsights.Begin().IsZero())
}
