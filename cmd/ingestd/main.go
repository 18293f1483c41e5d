// Command ingestd is the capture-index daemon: it tails one FX3 capture
// file (-capture-file), frames and validates their byte streams with StreamParser,
// and keeps a persistent, queryable index of every packet written.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	capture "github.com/fx3stream/capture-index"
	"github.com/fx3stream/capture-index/eventbus"
	"github.com/fx3stream/capture-index/feature"
	"github.com/fx3stream/capture-index/index"
	"github.com/fx3stream/capture-index/ingest"
	"github.com/fx3stream/capture-index/ingestqueue"
	"github.com/fx3stream/capture-index/parser"
	"github.com/fx3stream/capture-index/reader"
)

var (
	version string
	commit  string
	date    string
	builtBy string
)

func main() {
	configPath := flag.String("c", "", "path to configuration file")
	flag.StringVar(configPath, "config", "", "path to configuration file (alias for -c)")
	capturePath := flag.String("capture-file", "", "FX3 capture file to ingest")
	follow := flag.Bool("follow", true, "keep tailing the capture file for new data")
	flag.Parse()

	logger := logrus.New()
	textFormatter := logrus.TextFormatter{}
	textFormatter.DisableLevelTruncation = true
	textFormatter.FullTimestamp = true
	logger.SetFormatter(&textFormatter)

	config := capture.Config{}
	if err := config.ReadConfig(*configPath); err != nil {
		logger.Fatalln("Failed to read configuration:", err)
	}

	if config.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	capture.SetLogger(logger)
	ingest.SetLogger(logger)
	parser.SetLogger(logger)
	index.SetLogger(logger)
	reader.SetLogger(logger)
	feature.SetLogger(logger)
	ingestqueue.SetLogger(logger)
	eventbus.SetLogger(logger)

	logger.Infoln("Starting capture-index ingestd", version, "commit:", commit, "built on:", date, "built by:", builtBy)
	logger.Debugln("Session:", config.SessionID, "base path:", config.BasePath)

	core, err := capture.NewCore(config)
	if err != nil {
		logger.Fatalln("Failed to start core:", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Errorln("Failed to close core cleanly:", err)
		}
	}()

	if config.Metrics {
		capture.StartMetrics(config.MetricsPort)
	}
	if config.Profile {
		capture.StartProfile(config.ProfilePort)
	}

	go core.Drain()

	if *capturePath == "" {
		logger.Fatalln("No capture file configured; pass -capture-file")
	}

	sink := ingest.NewQueueSink(*capturePath, config.SessionID, core.Queue, core.Events)
	logger.Infoln("Ingesting capture file:", *capturePath, "follow:", *follow)

	total, err := ingest.Run(*capturePath, *follow, 1<<20, sink)
	if err != nil {
		logger.Fatalln("Failed to ingest capture file:", err)
	}
	logger.Infoln("Ingest finished, packets framed:", total)
}
