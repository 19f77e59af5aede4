package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkActiveAndInactive(t *testing.T) {
	m := NewManager()

	assert.False(t, m.IsActive(1))

	m.MarkActive(1, "alice")
	assert.True(t, m.IsActive(1))

	name, ok := m.Username(1)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	m.MarkInactive(1)
	assert.False(t, m.IsActive(1))

	_, ok = m.Username(1)
	assert.False(t, ok)
}

func TestIdempotency(t *testing.T) {
	m := NewManager()

	m.MarkActive(1, "alice")
	m.MarkActive(1, "alice")
	assert.True(t, m.IsActive(1))

	m.MarkInactive(1)
	m.MarkInactive(1)
	assert.False(t, m.IsActive(1))
}

func TestSessionsAreDisjointPerUser(t *testing.T) {
	m := NewManager()

	m.MarkActive(1, "alice")
	m.MarkActive(2, "bob")

	m.MarkInactive(1)

	assert.False(t, m.IsActive(1))
	assert.True(t, m.IsActive(2))
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := int64(0); i < 100; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			m.MarkActive(id, "user")
			m.IsActive(id)
			m.MarkInactive(id)
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 100; i++ {
		assert.False(t, m.IsActive(i))
	}
}
