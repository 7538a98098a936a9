package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-tripcheck/internal/domain"
)

func TestKnowledgeError(t *testing.T) {
	t.Run("wraps not found", func(t *testing.T) {
		err := NewKnowledgeError("hotel", "Grand Hyatt", "Hotel", domain.ErrNotFound)

		assert.Equal(t, "knowledge error: operation=Hotel, kind=hotel, key=Grand Hyatt, err=not found", err.Error())
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.False(t, errors.Is(err, ErrStoreUnavailable))
	})

	t.Run("wraps store failure", func(t *testing.T) {
		err := NewKnowledgeError("attraction", "x", "Attraction", ErrStoreUnavailable)

		assert.True(t, errors.Is(err, ErrStoreUnavailable))

		var ke *KnowledgeError
		assert.True(t, errors.As(err, &ke))
		assert.Equal(t, "x", ke.Key)
	})
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("engine.concurrency", domain.ErrInvalidConfiguration)

	assert.Equal(t, "config error: key=engine.concurrency, err=invalid configuration", err.Error())
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}
