package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Get_CreatesWhenIDEmpty(t *testing.T) {
	store := NewSessionStore()
	session, id := store.Get("", &recordingSender{})
	require.NotEmpty(t, id)
	assert.Equal(t, id, session.ID)
}

func TestSessionStore_Get_ReusesKnownID(t *testing.T) {
	store := NewSessionStore()
	first, id := store.Get("", &recordingSender{})
	second, sameID := store.Get(id, &recordingSender{})
	assert.Same(t, first, second)
	assert.Equal(t, id, sameID)
}

func TestSessionStore_Get_CreatesFreshSessionForUnseenID(t *testing.T) {
	store := NewSessionStore()
	session, id := store.Get("not-seen-before", &recordingSender{})
	assert.Equal(t, "not-seen-before", id)
	assert.NotNil(t, session)
}

func TestSessionStore_Delete_RemovesSession(t *testing.T) {
	store := NewSessionStore()
	_, id := store.Get("", &recordingSender{})
	store.Delete(id)

	session, newID := store.Get(id, &recordingSender{})
	assert.Equal(t, id, newID)
	assert.NotNil(t, session)
}
