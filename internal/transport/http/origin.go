package http

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// originPatterns turns configured origins ("https://example.com", "*.example.com")
// into host patterns for the WebSocket handshake. allowAll is true when "*" is present.
func originPatterns(origins []string, logger *zerolog.Logger) (patterns []string, allowAll bool) {
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			allowAll = true
			continue
		case !strings.Contains(trimmed, "://"):
			patterns = append(patterns, strings.ToLower(trimmed))
			continue
		}

		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Host == "" {
			logger.Warn().Str("origin", origin).Msg("ignoring invalid origin in configuration")
			continue
		}
		patterns = append(patterns, strings.ToLower(parsed.Host))
	}
	return patterns, allowAll
}
