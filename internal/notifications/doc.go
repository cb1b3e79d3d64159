// Package notifications delivers ntfy push notifications for episode
// discovery, finished notes, and pipeline errors. When no topic is configured
// a noop implementation is returned so callers never branch.
package notifications
