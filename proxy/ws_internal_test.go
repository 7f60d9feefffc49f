package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueDoesNotBlockOnFullBuffer(t *testing.T) {
	c := &wsClient{send: make(chan []byte, 1)}

	assert.True(t, c.queue([]byte("first")))
	assert.False(t, c.queue([]byte("second")))
	assert.Equal(t, []byte("first"), <-c.send)

	c.closed = true
	assert.False(t, c.queue([]byte("third")))
}
