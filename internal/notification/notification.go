package notification

import (
	"coursekit/internal/logging"

	"github.com/gen2brain/beeep"
)

var alert = beeep.Alert

// Send raises a desktop notification with a beep. Machines without a notification
// daemon get a log line instead.
func Send(log *logging.Logger, title, message string) error {
	if err := alert("coursekit: "+title, message, ""); err != nil {
		log.Warn().Err(err).Msgf("🔔 %s: %s", title, message)
		return err
	}
	return nil
}
