package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_MultipleConnections(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Connect("u1"), "first connection brings the user online")
	assert.False(t, r.Connect("u1"), "second connection is not a transition")
	assert.Equal(t, 2, r.Count("u1"))

	assert.False(t, r.Disconnect("u1"), "user still has an open connection")
	assert.True(t, r.IsOnline("u1"))

	assert.True(t, r.Disconnect("u1"), "last connection takes the user offline")
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.Online())
}

func TestRegistry_DisconnectUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Disconnect("ghost"))
	assert.Equal(t, 0, r.Count("ghost"))
}

func TestRegistry_OnlineIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Connect("c")
	r.Connect("a")
	r.Connect("b")
	assert.Equal(t, []string{"a", "b", "c"}, r.Online())
}

func TestRegistry_ConcurrentTransitions(t *testing.T) {
	r := NewRegistry()
	const users = 10
	const connsPerUser = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	online := 0
	for u := 0; u < users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if r.Connect(id) {
					mu.Lock()
					online++
					mu.Unlock()
				}
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()
	assert.Equal(t, users, online, "exactly one online transition per user")

	offline := 0
	for u := 0; u < users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if r.Disconnect(id) {
					mu.Lock()
					offline++
					mu.Unlock()
				}
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()
	assert.Equal(t, users, offline, "exactly one offline transition per user")
	assert.Empty(t, r.Online())
}
