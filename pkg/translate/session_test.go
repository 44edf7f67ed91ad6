package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionIsUniquePerCall(t *testing.T) {
	a := NewSession()
	b := NewSession()

	assert.NotEmpty(t, a.TranslationID)
	assert.NotEqual(t, a.TranslationID, b.TranslationID)
	assert.Empty(t, a.IterationID, "iteration id is assigned later in the protocol")
}

func TestNewOperationIDIsUniquePerCall(t *testing.T) {
	assert.NotEqual(t, newOperationID(), newOperationID())
}
