package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPqErrorCode(t *testing.T) {
	assert.Equal(t, "", pqErrorCode(nil))
	assert.Equal(t, "", pqErrorCode(errors.New("boom")))
	assert.Equal(t, "23505", pqErrorCode(&pq.Error{Code: "23505"}))

	wrapped := errors.Join(errors.New("context"), &pq.Error{Code: "23503"})
	assert.Equal(t, "23503", pqErrorCode(wrapped))
}

func TestIsUniqueAndForeignKeyViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))

	assert.True(t, isForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("plain")))
}
