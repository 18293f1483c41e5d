package capture

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger

func init() {
	// Give a default logger at the start to avoid nil pointer panics
	// before the host process wires in a real one.
	log = logrus.New()
}

// SetLogger replaces the logger of this root package (Core, config loading,
// the metrics and profile servers). Each subpackage has its own logger with
// its own SetLogger.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}
