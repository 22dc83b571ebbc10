// Package events defines the domain events produced by board mutations.
//
// Every mutation of a board's contents (lists, tasks, the board itself,
// its membership) produces exactly one Event. Events are addressed to a
// board and fanned out to the live connections currently joined to that
// board's room; they are never persisted or replayed.
//
// The primary components are:
// - Event: A single change notification addressed to one board
// - Kind: The closed set of event types
// - Broadcaster: Interface for components that deliver events
package events
