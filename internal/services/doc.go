// Package services provides shared helpers for the external service clients:
// sentinel error markers with stage context, failure classification used when
// persisting episode failures, and context annotations for structured logging.
package services
