package index

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger = logrus.New()

// SetLogger overrides the package-level logger, letting the host process
// wire in its own configured instance (see capture.SetLogger).
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}
