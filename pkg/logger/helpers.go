package logger

import (
	"time"
)

// LogDownload logs the outcome of a single photo download
func LogDownload(l Logger, photoID, setName, path string, skipped bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"photo_id": photoID,
		"set":      setName,
		"path":     path,
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Download failed")
	case skipped:
		entry.Debug("Download skipped, file exists")
	default:
		entry.Info("Download completed")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(l Logger, method string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"method": method,
		"wait":   wait,
		"action": "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}
