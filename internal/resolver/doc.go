// Package resolver turns discovered episode links into playable audio.
//
// It fetches the xiaoyuzhou episode page, extracts the enclosure URL along
// with title, show name, and duration, and persists them on the episode so
// transcription can run against a direct audio link. URLs that do not point
// at an episode page fail the episode permanently rather than being retried.
package resolver
