// Command capture-status is an operational health check for a running
// ingestd, adapted from the teacher's cmd/shoveler-status: poll the metrics
// endpoint twice across a period and report whether packets are still being
// framed and whether the ingest queue is keeping up.
package main

import (
	"io"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	capture "github.com/fx3stream/capture-index"
	"github.com/fx3stream/capture-index/auth"
)

var (
	version string
	commit  string
	date    string
	builtBy string
)

type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"Show verbose debug information"`
	Version bool   `short:"V" long:"version" description:"Print version information"`
	Config  string `short:"c" long:"config" description:"Configuration file to use" default:"/etc/fx3-capture-index/config.yaml"`
	Period  int    `short:"p" long:"period" description:"Period in seconds to check the ingestd status" default:"10"`
	Token   string `short:"t" long:"token" description:"Read-capability token file to validate against the configured session"`
}

// queueSizeAlarm is the ingest-queue backlog (in batches) above which the
// daemon is considered unable to keep up.
const queueSizeAlarm = 100

type stats struct {
	packetsParsed int64
	queueSize     int64
	indexSize     int64
}

var options Options
var parser = flags.NewParser(&options, flags.Default)

func main() {
	logger := logrus.New()

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logger.Errorln(err)
		os.Exit(1)
	}

	logger.Debugln("capture-status", version, "commit:", commit, "built on:", date, "built by:", builtBy)

	spinnerConfig, _ := pterm.DefaultSpinner.Start("Checking the ingestd configuration")
	config := capture.Config{}
	if err := config.ReadConfig(options.Config); err != nil {
		spinnerConfig.Fail("Unable to read configuration: ", err)
		os.Exit(1)
	}
	if len(options.Verbose) > 0 {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	spinnerConfig.Success()

	if options.Token != "" {
		checkToken(config, options.Token)
	}

	if !config.Metrics {
		pterm.Error.Println("Metrics are disabled in the configuration file")
		logger.Errorln("Metrics are disabled, unable to determine if ingestd is running")
		os.Exit(1)
	}

	initialStats, err := checkMetricsEndpoint(config.MetricsPort)
	if err != nil {
		logger.Errorln("Unable to connect to the ingestd metrics endpoint:", err)
		os.Exit(1)
	}

	if initialStats.packetsParsed == 0 {
		pterm.Warning.Println("ingestd has not parsed any packets since it was started")
	}
	reportQueueSize(initialStats)

	spinnerPeriod, _ := pterm.DefaultSpinner.Start("Rechecking after " + strconv.Itoa(options.Period) + " seconds")
	time.Sleep(time.Duration(options.Period) * time.Second)
	spinnerPeriod.Success()

	secondStats, err := checkMetricsEndpoint(config.MetricsPort)
	if err != nil {
		spinnerPeriod.Fail("Unable to connect to the ingestd metrics endpoint: ", err)
		os.Exit(1)
	}

	reportQueueSize(secondStats)
	if secondStats.packetsParsed == initialStats.packetsParsed {
		pterm.Error.Println("ingestd has not parsed any packets since the first check")
	} else {
		pterm.Success.Println("ingestd parsed", strconv.FormatInt(secondStats.packetsParsed-initialStats.packetsParsed, 10), "packets since the last check")
	}
}

func reportQueueSize(s stats) {
	if s.queueSize > queueSizeAlarm {
		pterm.Error.Println("ingestd has", strconv.FormatInt(s.queueSize, 10), "batches queued for indexing, which indicates it is not keeping up")
	} else {
		pterm.Success.Println("ingestd's ingest queue is within bounds (", strconv.FormatInt(s.queueSize, 10), "batches )")
	}
}

func checkToken(config capture.Config, tokenPath string) {
	spinnerToken, _ := pterm.DefaultSpinner.Start("Checking the read-capability token")

	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		spinnerToken.Fail("Unable to read token file: ", err)
		return
	}
	pubKey, err := os.ReadFile(config.Auth.PublicKeyPath)
	if err != nil {
		spinnerToken.Fail("Unable to read public key: ", err)
		return
	}
	if err := auth.VerifyReadCapability(string(tokenBytes), pubKey, config.SessionID); err != nil {
		spinnerToken.Fail("Token is not valid for session "+config.SessionID+": ", err)
		return
	}
	spinnerToken.Success()
}

func checkMetricsEndpoint(metricsPort int) (stats, error) {
	metricsURL := "http://localhost:" + strconv.Itoa(metricsPort) + "/metrics"
	spinner, _ := pterm.DefaultSpinner.Start("Checking the ingestd metrics endpoint: " + metricsURL)
	resp, err := http.Get(metricsURL)
	if err != nil {
		spinner.Fail()
		return stats{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		spinner.Fail("Unable to read the metrics endpoint")
		return stats{}, err
	}
	spinner.Success()
	return parseStats(string(body)), nil
}

func parseMetric(line string) int64 {
	flt, _, err := big.ParseFloat(strings.Split(line, " ")[1], 10, 0, big.ToNearestEven)
	if err != nil {
		return 0
	}
	v, _ := flt.Int64()
	return v
}

func parseStats(body string) stats {
	var s stats
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "capture_packets_parsed"):
			s.packetsParsed = parseMetric(line)
		case strings.HasPrefix(line, "capture_ingest_queue_size"):
			s.queueSize = parseMetric(line)
		case strings.HasPrefix(line, "capture_index_size"):
			s.indexSize = parseMetric(line)
		}
	}
	return s
}
