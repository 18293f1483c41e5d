package ingest

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger = logrus.New()

// SetLogger overrides the package-level logger.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}
