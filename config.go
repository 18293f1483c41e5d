package capture

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process-wide tunable surface (spec §6). Every field has the
// documented default applied by ReadConfig even when no config file is found.
type Config struct {
	BasePath  string // directory holding {session_id}.json index snapshots
	SessionID string

	ByteCacheBudgetBytes   int64
	MaxOpenFiles           int
	IdleFileCloseSeconds   int
	ReadTimeoutMs          int
	SnapshotThreshold      int
	BatchSnapshotThreshold int

	ParserEarlyTerminatePackets int
	ParserStrideConfirmHits     int
	ParserStrideMissTolerance   int

	QueueDirectory string // ingestqueue on-disk overflow directory

	Metrics     bool
	MetricsPort int
	Profile     bool
	ProfilePort int
	Debug       bool

	EventBus struct {
		Enable   bool
		Kind     string // "amqp" or "stomp"
		URL      string
		Exchange string
		Topic    string
	}

	Auth struct {
		PublicKeyPath string
	}
}

// ReadConfig loads configuration with viper, searching the usual locations
// and falling back to environment variables with "." replaced by "_", then
// applies spec-mandated defaults for anything left unset. This mirrors the
// teacher's ReadConfig (package-global viper instance, YAML, env override).
func (c *Config) ReadConfig(explicitPath string) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.AddConfigPath("/etc/fx3-capture-index/")
		v.AddConfigPath("$HOME/.fx3-capture-index")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	c.setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("fx3-capture-index: error reading config file: %w", err)
		}
		log.Debugln("No config file found, using defaults and environment")
	}

	c.BasePath = v.GetString("index.base_path")
	c.SessionID = v.GetString("index.session_id")

	c.ByteCacheBudgetBytes = v.GetInt64("reader.byte_cache_budget_bytes")
	c.MaxOpenFiles = v.GetInt("reader.max_open_files")
	c.IdleFileCloseSeconds = v.GetInt("reader.idle_file_close_seconds")
	c.ReadTimeoutMs = v.GetInt("reader.read_timeout_ms")
	c.SnapshotThreshold = v.GetInt("index.snapshot_threshold")
	c.BatchSnapshotThreshold = v.GetInt("index.batch_snapshot_threshold")

	c.ParserEarlyTerminatePackets = v.GetInt("parser.early_terminate_packets")
	c.ParserStrideConfirmHits = v.GetInt("parser.stride_confirm_hits")
	c.ParserStrideMissTolerance = v.GetInt("parser.stride_miss_tolerance")

	c.QueueDirectory = v.GetString("ingest.queue_directory")

	c.Metrics = v.GetBool("metrics.enable")
	c.MetricsPort = v.GetInt("metrics.port")
	c.Profile = v.GetBool("profile.enable")
	c.ProfilePort = v.GetInt("profile.port")
	c.Debug = v.GetBool("debug")

	c.EventBus.Enable = v.GetBool("eventbus.enable")
	c.EventBus.Kind = v.GetString("eventbus.kind")
	c.EventBus.URL = v.GetString("eventbus.url")
	c.EventBus.Exchange = v.GetString("eventbus.exchange")
	c.EventBus.Topic = v.GetString("eventbus.topic")

	c.Auth.PublicKeyPath = v.GetString("auth.public_key_path")

	return nil
}

func (c *Config) setDefaults(v *viper.Viper) {
	v.SetDefault("index.base_path", "/var/lib/fx3-capture-index")
	v.SetDefault("index.session_id", "default")
	v.SetDefault("index.snapshot_threshold", DefaultSnapshotThreshold)
	v.SetDefault("index.batch_snapshot_threshold", DefaultBatchSnapshotThreshold)

	v.SetDefault("reader.byte_cache_budget_bytes", int64(DefaultByteCacheBudgetBytes))
	v.SetDefault("reader.max_open_files", DefaultMaxOpenFiles)
	v.SetDefault("reader.idle_file_close_seconds", DefaultIdleFileCloseSeconds)
	v.SetDefault("reader.read_timeout_ms", DefaultReadTimeoutMs)

	v.SetDefault("parser.early_terminate_packets", DefaultParserEarlyTerminatePackets)
	v.SetDefault("parser.stride_confirm_hits", DefaultParserStrideConfirmHits)
	v.SetDefault("parser.stride_miss_tolerance", DefaultParserStrideMissTolerance)

	v.SetDefault("ingest.queue_directory", "/tmp/fx3-capture-index-queue")

	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.port", 8000)
	v.SetDefault("profile.enable", false)
	v.SetDefault("profile.port", 6060)

	v.SetDefault("eventbus.enable", false)
	v.SetDefault("eventbus.kind", "amqp")
	v.SetDefault("eventbus.exchange", "fx3-capture-events")
	v.SetDefault("eventbus.topic", "/topic/fx3-capture-events")

	v.SetDefault("auth.public_key_path", "/etc/fx3-capture-index/capture-public.pem")
}
