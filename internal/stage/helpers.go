package stage

import (
	"strings"

	"podnotes/internal/ledger"
	"podnotes/internal/services"
)

// RequireAudioURL verifies the episode carries a resolved audio URL.
// On failure it returns a services.ErrConfiguration suitable for stage
// Execute methods, since a missing URL means an earlier stage was skipped.
func RequireAudioURL(episode *ledger.Episode, stageName string) (string, error) {
	url := strings.TrimSpace(episode.AudioURL)
	if url == "" {
		return "", services.Wrap(
			services.ErrConfiguration, stageName, "require audio url",
			"Episode has no resolved audio URL; resolution must run first", nil)
	}
	return url, nil
}
