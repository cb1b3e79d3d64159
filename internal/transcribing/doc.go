// Package transcribing drives an audio file through the Tingwu offline
// transcription service.
//
// The stage submits the resolved audio URL, records the backend task
// identifier before anything else so a crash never orphans a paid task, then
// polls until the task completes, fails, or the configured ceiling passes.
// Transient polling errors are tolerated up to a configured number of
// consecutive attempts before the episode is failed.
package transcribing
