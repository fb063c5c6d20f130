package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestStore_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New[int](30 * time.Second).WithClock(clock.Now)

	s.Set("AAPL", 7)
	v, ok := s.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	clock.t = clock.t.Add(29 * time.Second)
	_, ok = s.Get("AAPL")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = s.Get("AAPL")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DisabledWithZeroTTL(t *testing.T) {
	s := New[string](0)
	s.Set("k", "v")
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_Purge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New[int](time.Minute).WithClock(clock.Now)
	s.Set("a", 1)
	clock.t = clock.t.Add(30 * time.Second)
	s.Set("b", 2)
	clock.t = clock.t.Add(45 * time.Second)

	assert.Equal(t, 1, s.Purge())
	_, ok := s.Get("b")
	assert.True(t, ok)
}
