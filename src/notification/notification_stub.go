//go:build !windows

package notification

import "github.com/rs/zerolog/log"

// ShowBlockingError logs a blocking error message on non-Windows platforms.
func ShowBlockingError(title, message string) {
	log.Error().Str("title", title).Msg(clip(message))
}
