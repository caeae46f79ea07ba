package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflict("friend request already exists")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("lookup: %w", NotFound("user not found"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to create friend request", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create friend request", Message(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMessageHidesForeignErrors(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("pq: relation does not exist")))
	assert.Equal(t, "cannot send friend request to yourself", Message(InvalidArgument("cannot send friend request to yourself")))
}
