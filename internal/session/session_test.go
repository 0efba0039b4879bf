package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSession_AppendPreservesOrder(t *testing.T) {
	s := &Session{}
	s.Append(RoleHuman, "hello")
	s.Append(RoleAssistant, "hi there")
	s.Append(RoleHuman, "what do you do?")

	got := s.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, Message{Role: RoleHuman, Content: "hello"}, got[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "hi there"}, got[1])
	assert.Equal(t, Message{Role: RoleHuman, Content: "what do you do?"}, got[2])
}

func TestSession_ExchangesAlternate(t *testing.T) {
	s := &Session{}
	const n = 5
	for i := range n {
		s.AppendExchange(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	got := s.Snapshot()
	require.Len(t, got, 2*n)
	for i, msg := range got {
		if i%2 == 0 {
			assert.Equal(t, RoleHuman, msg.Role, "turn %d", i)
		} else {
			assert.Equal(t, RoleAssistant, msg.Role, "turn %d", i)
		}
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := &Session{}
	s.Append(RoleHuman, "original")

	snap := s.Snapshot()
	snap[0].Content = "mutated"
	s.Append(RoleAssistant, "reply")

	got := s.Snapshot()
	assert.Equal(t, "original", got[0].Content)
}

func TestSession_Reset(t *testing.T) {
	s := &Session{}
	s.AppendExchange("q", "a")
	require.Equal(t, 2, s.Len())

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Snapshot())

	s.Append(RoleHuman, "fresh start")
	assert.Equal(t, 1, s.Len())
}

func TestSession_ConcurrentExchanges(t *testing.T) {
	s := &Session{}
	const workers = 16

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}()
	}
	wg.Wait()

	got := s.Snapshot()
	require.Len(t, got, 2*workers)
	// Pairs must never interleave regardless of scheduling.
	for i := 0; i < len(got); i += 2 {
		assert.Equal(t, RoleHuman, got[i].Role)
		assert.Equal(t, RoleAssistant, got[i+1].Role)
		assert.Equal(t, got[i].Content[1:], got[i+1].Content[1:], "answer belongs to its question")
	}
}

func TestStore_GetCreatesOnce(t *testing.T) {
	st := NewStore()

	a := st.Get("visitor-1")
	b := st.Get("visitor-1")
	c := st.Get("visitor-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, st.Len())
}

func TestStore_EmptyIDGetsFreshSession(t *testing.T) {
	st := NewStore()

	a := st.Get("")
	b := st.Get("")
	assert.NotSame(t, a, b)
}

func TestStore_Reset(t *testing.T) {
	st := NewStore()
	s := st.Get("visitor-1")
	s.AppendExchange("q", "a")

	st.Reset("visitor-1")
	assert.Zero(t, s.Len())

	// Unknown ID is a no-op.
	st.Reset("nobody")
}

func TestStore_ConcurrentGet(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	sessions := make([]*Session, 32)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[i] = st.Get("shared")
		}()
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, 1, st.Len())
}
