// Package logger provides the structured logging interface used across the
// backup pipeline.
//
// It wraps zerolog. Console output is human readable; when a log file is
// configured every entry is also written to it as a JSON line.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "extractor")
//	log.InfoWithFields("Page extracted", map[string]interface{}{
//	    "set_id": unit.ID,
//	    "page":   page,
//	})
//
// Tests use NewTestLogger to capture entries, or NewNop to discard them.
package logger
