// Package summarizing distills a completed transcript into an episode
// summary through three LLM passes: plan topics per time window, elaborate
// each window, then polish the overview and insights.
//
// LLM failures never fail the episode. When a pass cannot be completed the
// stage falls back to material already on hand (backend chapters, the
// backend paragraph summary, or a single whole-episode segment) and marks
// the result degraded so the rendered note says so.
package summarizing
