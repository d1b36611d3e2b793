package router

import (
	"sync"
	"testing"

	"github.com/entrhq/stylebot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponder_FirstSendWins(t *testing.T) {
	resp := NewResponder()

	assert.True(t, resp.Send(types.NewValueResponse(1)))
	assert.False(t, resp.Send(types.NewValueResponse(2)))
	resp.Close()

	got, ok := <-resp.Result()
	require.True(t, ok)
	assert.Equal(t, 1, got.Value)

	_, ok = <-resp.Result()
	assert.False(t, ok)
}

func TestResponder_SendAfterClose(t *testing.T) {
	resp := NewResponder()
	resp.Close()
	resp.Close()

	assert.NotPanics(t, func() {
		assert.False(t, resp.Send(types.NewAckResponse()))
	})
	assert.False(t, resp.Responded())
}

func TestResponder_NilSendIsAck(t *testing.T) {
	resp := NewResponder()

	require.True(t, resp.Send(nil))

	got := <-resp.Result()
	assert.Equal(t, types.NewAckResponse(), got)
}

func TestResponder_ConcurrentSends(t *testing.T) {
	resp := NewResponder()

	var wg sync.WaitGroup
	accepted := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if resp.Send(types.NewValueResponse(i)) {
				accepted <- i
			}
		}(i)
	}
	wg.Wait()
	close(accepted)
	resp.Close()

	var winners []int
	for i := range accepted {
		winners = append(winners, i)
	}
	require.Len(t, winners, 1)

	got := <-resp.Result()
	assert.Equal(t, winners[0], got.Value)
}

func TestResponder_IDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewResponder().ID(), NewResponder().ID())
}
