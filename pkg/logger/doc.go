// Package logger provides structured logging for autored.
//
// It wraps zerolog behind the Logger interface so that flows can be given a
// capturing TestLogger in tests and a no-op logger where output is unwanted.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "publisher")
//	log.InfoWithFields("file attached", map[string]interface{}{
//	    "index": 0,
//	    "path":  "output/images/a.png",
//	})
//
// Console output is pretty-printed to stderr. When logging.file is set, JSON
// lines are additionally appended to that file.
package logger
