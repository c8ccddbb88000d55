// Package router is the dispatch engine. It admits inbound room messages,
// counts them, runs the always-on reactors, opens the activation gate for
// command handlers, and rolls the randomized behaviors.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrInboxFull indicates the router's inbox is at capacity and the
	// event was dropped.
	ErrInboxFull = errors.New("router: inbox full, event dropped")

	// ErrRouterStopped indicates the router has been shut down and is
	// no longer accepting events.
	ErrRouterStopped = errors.New("router: stopped")

	// ErrNoEmitter indicates no response emitter has been configured.
	ErrNoEmitter = errors.New("router: no emitter configured")
)
