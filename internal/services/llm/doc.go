// Package llm wraps the OpenRouter-compatible chat completion API used for
// episode summarization.
//
// The client speaks JSON-only completions with bounded exponential retry:
// transient transport failures, HTTP 408/429/5xx, and empty-content responses
// are retried with backoff (honouring Retry-After); everything else fails
// fast. DecodeLLMJSON tolerates the usual model formatting quirks such as code
// fences around payloads.
//
// On top of the transport the package exposes the three summarization
// operations the pipeline performs per episode: Segment plans time windows
// and drafts an overall summary, Elaborate expands one window into a summary
// with quotes and key points, and Finalize produces the polished overview and
// key insights for the rendered note.
package llm
