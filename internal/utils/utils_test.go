package utils

import (
	"context"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	ctx := SetUserContext(context.Background(), "user-1", "test@example.com", "user")
	ctx = SetAuthToken(ctx, "token-abc")

	id, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
	assert.Equal(t, "test@example.com", GetUserEmailFromContext(ctx))
	assert.Equal(t, "user", GetUserRoleFromContext(ctx))
	assert.Equal(t, "token-abc", GetAuthTokenFromContext(ctx))

	_, ok = GetUserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "", GetAuthTokenFromContext(context.Background()))
}

func TestGenerateOrderID(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-\d{6}-\d{3}-\d{4}$`)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		id := GenerateOrderID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate order id generated: %s", id)
		seen[id] = true
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, "something broke", 400)

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"something broke"}`, w.Body.String())
}

func TestStrPtr(t *testing.T) {
	p := StrPtr("hello")
	assert.Equal(t, "hello", *p)
	assert.Equal(t, "hello", PtrString(p))
	assert.Equal(t, "", PtrString(nil))
}
