package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTransitions(t *testing.T) {
	sm := NewDocumentStateMachine()

	assert.True(t, sm.CanTransition("draft", "published"))
	assert.True(t, sm.CanTransition("published", "in_signing"))
	assert.True(t, sm.CanTransition("in_signing", "completed"))
	assert.True(t, sm.CanTransition("in_signing", "regenerated"))
	assert.True(t, sm.CanTransition("regenerated", "in_signing"))

	assert.False(t, sm.CanTransition("draft", "completed"))
	assert.False(t, sm.CanTransition("completed", "in_signing"))
	assert.False(t, sm.CanTransition("unknown", "draft"))
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := NewDocumentStateMachine()

	assert.ElementsMatch(t, []string{"completed", "regenerated"}, sm.GetAllowedTransitions("in_signing"))
	assert.Empty(t, sm.GetAllowedTransitions("completed"))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))
}
