package redisx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesCommandTimeout(t *testing.T) {
	c := New("localhost:6379")
	defer c.Close()

	opts := c.Options()
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
	assert.Equal(t, 2*time.Second, opts.WriteTimeout)
}
