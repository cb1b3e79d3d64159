// Package publisher renders the finished summary into a markdown note and
// places it in the archive.
//
// The archive write is authoritative: if it fails the episode fails. The
// mirror copy is best effort and only logged when it cannot be written.
package publisher
