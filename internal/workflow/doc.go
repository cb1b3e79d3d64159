// Package workflow advances episodes from discovery to an archived note.
//
// The Manager polls the link source on a fixed interval, claims new links in
// the ledger, and drives each pending episode through the registered stage
// handlers (resolver, transcriber, summarizer, publisher) synchronously. A
// stage failure marks the episode failed with a classified reason and moves
// on; source outages are logged and retried on the error interval without
// ever stopping the daemon.
package workflow
