package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserKey(t *testing.T) {
	assert.Equal(t, "bob", User{ID: 7, Username: "bob"}.Key())
	assert.Equal(t, "bob", User{Username: "bob"}.Key())
	assert.Equal(t, "bob", User{ID: 7, Username: "Bob"}.Key())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Bob Brown", User{FirstName: "Bob", LastName: "Brown"}.DisplayName())
}

func TestDisplayID(t *testing.T) {
	assert.Equal(t, int64(42), (&ReviewRequest{ID: 42}).DisplayID())
	assert.Equal(t, int64(3), (&ReviewRequest{ID: 42, LocalID: 3}).DisplayID())
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventReplyPublished.Valid())
	assert.False(t, EventType("review_request.discarded").Valid())
	assert.False(t, EventType("").Valid())
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("not-authorized")
	err := error(NewDeliveryError(ErrKindAuth, "bob@example.com", "authenticating", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDeliveryErrorKind(err, ErrKindAuth))
	assert.False(t, IsDeliveryErrorKind(err, ErrKindConfig))
	assert.Equal(t, ErrKindAuth, DeliveryErrorKind(err))
	assert.Equal(t, `auth error delivering to "bob@example.com" during authenticating: not-authorized`, err.Error())
	assert.False(t, NewDeliveryError(ErrKindAuth, "", "", cause).Fatal())
	assert.True(t, NewDeliveryError(ErrKindConfig, "", "", cause).Fatal())
	assert.Equal(t, ErrorKind(""), DeliveryErrorKind(cause))
}
