package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryBindAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()
	c := &Client{}

	_, ok := r.ClientFor("alice")
	req.False(ok)
	req.False(r.Bound("alice"))

	r.Bind("alice", c)
	got, ok := r.ClientFor("alice")
	req.True(ok)
	req.Same(c, got)
	req.True(r.Bound("alice"))
}

func TestRegistrySupersede(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()
	old := &Client{}
	replacement := &Client{}

	r.Bind("alice", old)
	r.Bind("alice", replacement)

	got, ok := r.ClientFor("alice")
	req.True(ok)
	req.Same(replacement, got, "a new connection supersedes the mapping")
}

func TestRegistryUnbindOnlyRemovesOwnMapping(t *testing.T) {
	req := require.New(t)
	r := NewSessionRegistry()
	old := &Client{}
	replacement := &Client{}

	r.Bind("alice", old)
	r.Bind("alice", replacement)

	req.False(r.Unbind("alice", old), "a superseded connection must not evict its successor")
	req.True(r.Bound("alice"))

	req.True(r.Unbind("alice", replacement))
	req.False(r.Bound("alice"))
	req.False(r.Unbind("alice", replacement), "unbind is idempotent")
}
