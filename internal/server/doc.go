// Package server implements the PairLink coordinator: it pairs two
// anonymous participants into an ephemeral room over a WebSocket connection
// and relays messages and presence events between them.
//
// The implementation is organized into specialized files for the room
// store, the session registry, connection handling, command execution, and
// the HTTP surface to keep the codebase maintainable and testable.
package server
