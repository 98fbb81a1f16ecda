package tag

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountedMarker(t *testing.T) {
	tags := New(NewMemoryStore())
	obj := uuid.New()

	assert.False(t, tags.IsMounted(obj))
	tags.MarkMounted(obj)
	assert.True(t, tags.IsMounted(obj))
	tags.UnmarkMounted(obj)
	assert.False(t, tags.IsMounted(obj))

	// Removing twice is harmless
	tags.UnmarkMounted(obj)
}

func TestOwnerRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	tags := New(store)
	obj, actor := uuid.New(), uuid.New()

	_, ok := tags.Owner(obj)
	require.False(t, ok)

	tags.SetOwner(obj, actor)
	got, ok := tags.Owner(obj)
	require.True(t, ok)
	assert.Equal(t, actor, got)

	// Owner outlives mount cycles
	tags.MarkMounted(obj)
	tags.UnmarkMounted(obj)
	_, ok = tags.Owner(obj)
	assert.True(t, ok)
}

func TestOwnerGarbageValueIsUnowned(t *testing.T) {
	store := NewMemoryStore()
	tags := New(store)
	obj := uuid.New()

	store.Set(obj, KeyOwner, []byte("not-a-uuid"))
	_, ok := tags.Owner(obj)
	assert.False(t, ok)
}

func TestConsumeNoFall(t *testing.T) {
	tags := New(NewMemoryStore())
	obj := uuid.New()

	assert.False(t, tags.ConsumeNoFall(obj))
	tags.MarkNoFall(obj)
	assert.True(t, tags.ConsumeNoFall(obj))
	assert.False(t, tags.ConsumeNoFall(obj))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	obj := uuid.New()
	v := []byte{7}

	store.Set(obj, "k", v)
	v[0] = 9

	got, ok := store.Get(obj, "k")
	require.True(t, ok)
	assert.Equal(t, byte(7), got[0])
}
