// Package types defines the compliance finding model shared by every stage of
// the relay. These are the canonical in-memory representations of the JSON
// document a compliance engine publishes to the notification topic.
package types
