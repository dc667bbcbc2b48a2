package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/zalando/traject"
)

type Config struct {
	ConfigFile string
	Flags      *flag.FlagSet

	// generic:
	Address            string        `yaml:"address"`
	SupportListener    string        `yaml:"support-listener"`
	ShutdownTimeout    time.Duration `yaml:"shutdown-timeout"`
	EnableCompression  bool          `yaml:"enable-compression"`
	ReadHeaderTimeout  time.Duration `yaml:"read-header-timeout-server"`
	ReadTimeoutServer  time.Duration `yaml:"read-timeout-server"`
	WriteTimeoutServer time.Duration `yaml:"write-timeout-server"`
	IdleTimeoutServer  time.Duration `yaml:"idle-timeout-server"`
	PrintRoutes        bool          `yaml:"print-routes"`

	// routes:
	RoutesFile             string        `yaml:"routes-file"`
	RoutesFilePollInterval time.Duration `yaml:"routes-file-poll-interval"`
	InlineRoutes           routesFlag    `yaml:"inline-routes"`

	// logging:
	ApplicationLog            string    `yaml:"application-log"`
	ApplicationLogLevel       log.Level `yaml:"-"`
	ApplicationLogLevelString string    `yaml:"application-log-level"`
	ApplicationLogPrefix      string    `yaml:"application-log-prefix"`
	AccessLog                 string    `yaml:"access-log"`
	AccessLogDisabled         bool      `yaml:"access-log-disabled"`
	AccessLogJSONEnabled      bool      `yaml:"access-log-json-enabled"`

	// metrics:
	EnablePrometheusMetrics      bool      `yaml:"enable-prometheus-metrics"`
	MetricsPrefix                string    `yaml:"metrics-prefix"`
	HistogramMetricBucketsString string    `yaml:"histogram-metric-buckets"`
	HistogramMetricBuckets       []float64 `yaml:"-"`
	EnableRuntimeMetrics         bool      `yaml:"enable-runtime-metrics"`
}

const (
	defaultAddress                = ":9090"
	defaultSupportListener        = ":9911"
	defaultShutdownTimeout        = 30 * time.Second
	defaultReadHeaderTimeout      = 60 * time.Second
	defaultIdleTimeoutServer      = 60 * time.Second
	defaultRoutesFilePollInterval = 3 * time.Second
	defaultApplicationLogLevel    = "INFO"
	defaultApplicationLogPrefix   = "[APP]"
	defaultMetricsPrefix          = "traject."
)

func NewConfig() *Config {
	cfg := new(Config)

	flag := flag.NewFlagSet("", flag.ExitOnError)
	flag.StringVar(&cfg.ConfigFile, "config-file", "", "if provided the flags will be loaded/overwritten by the values on the file (yaml)")

	// generic:
	flag.StringVar(&cfg.Address, "address", defaultAddress, "network address that traject should listen on")
	flag.StringVar(&cfg.SupportListener, "support-listener", defaultSupportListener, "network address used for exposing the /metrics and the /routes endpoints. An empty value disables the support endpoint")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", defaultShutdownTimeout, "maximum time to wait for the requests in progress on shutdown")
	flag.BoolVar(&cfg.EnableCompression, "enable-compression", false, "gzip compress the responses for the clients accepting it")
	flag.DurationVar(&cfg.ReadHeaderTimeout, "read-header-timeout-server", defaultReadHeaderTimeout, "set ReadHeaderTimeout for http server connections")
	flag.DurationVar(&cfg.ReadTimeoutServer, "read-timeout-server", 0, "set ReadTimeout for http server connections")
	flag.DurationVar(&cfg.WriteTimeoutServer, "write-timeout-server", 0, "set WriteTimeout for http server connections")
	flag.DurationVar(&cfg.IdleTimeoutServer, "idle-timeout-server", defaultIdleTimeoutServer, "set IdleTimeout for http server connections")
	flag.BoolVar(&cfg.PrintRoutes, "print-routes", false, "log the registered path patterns on startup and on route file changes")

	// routes:
	flag.StringVar(&cfg.RoutesFile, "routes-file", "", "file containing the application definitions in yaml format")
	flag.DurationVar(&cfg.RoutesFilePollInterval, "routes-file-poll-interval", defaultRoutesFilePollInterval, "polling interval of the routes file, 0 disables watching the file")
	flag.Var(&cfg.InlineRoutes, "inline-routes", "application definitions in yaml format, use flow-style for convenience. Takes precedence over routes-file")

	// logging:
	flag.StringVar(&cfg.ApplicationLog, "application-log", "", "output file for the application log. When not set, /dev/stderr is used")
	flag.StringVar(&cfg.ApplicationLogLevelString, "application-log-level", defaultApplicationLogLevel, "log level for application logs, possible values: PANIC, FATAL, ERROR, WARN, INFO, DEBUG")
	flag.StringVar(&cfg.ApplicationLogPrefix, "application-log-prefix", defaultApplicationLogPrefix, "prefix for each log entry")
	flag.StringVar(&cfg.AccessLog, "access-log", "", "output file for the access log, When not set, /dev/stderr is used")
	flag.BoolVar(&cfg.AccessLogDisabled, "access-log-disabled", false, "when this flag is set, no access log is printed")
	flag.BoolVar(&cfg.AccessLogJSONEnabled, "access-log-json-enabled", false, "when this flag is set, log in JSON format is used")

	// metrics:
	flag.BoolVar(&cfg.EnablePrometheusMetrics, "enable-prometheus-metrics", false, "expose Prometheus metrics on the support listener")
	flag.StringVar(&cfg.MetricsPrefix, "metrics-prefix", defaultMetricsPrefix, "allows setting a custom namespace for the exposed metrics")
	flag.StringVar(&cfg.HistogramMetricBucketsString, "histogram-metric-buckets", "", "use custom buckets for prometheus histograms, must be a comma-separated list of numbers")
	flag.BoolVar(&cfg.EnableRuntimeMetrics, "enable-runtime-metrics", true, "enables reporting of the Go runtime and the process statistics")

	cfg.Flags = flag
	return cfg
}

func validate(c *Config) error {
	_, err := log.ParseLevel(c.ApplicationLogLevelString)
	if err != nil {
		return err
	}

	_, err = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	if err != nil {
		return err
	}

	if c.RoutesFilePollInterval < 0 {
		return fmt.Errorf("invalid routes-file-poll-interval: %v", c.RoutesFilePollInterval)
	}

	return nil
}

func (c *Config) Parse() error {
	return c.ParseArgs(os.Args[0], os.Args[1:])
}

func (c *Config) ParseArgs(progname string, args []string) error {
	c.Flags.Init(progname, flag.ExitOnError)
	err := c.Flags.Parse(args)
	if err != nil {
		return err
	}

	// check if arguments were correctly parsed.
	if len(c.Flags.Args()) != 0 {
		return fmt.Errorf("invalid arguments: %s", c.Flags.Args())
	}

	if c.ConfigFile != "" {
		yamlFile, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return fmt.Errorf("invalid config file: %w", err)
		}

		err = yaml.Unmarshal(yamlFile, c)
		if err != nil {
			return fmt.Errorf("unmarshalling config file error: %w", err)
		}

		err = c.Flags.Parse(args)
		if err != nil {
			return err
		}
	}

	if err := validate(c); err != nil {
		return err
	}

	c.ApplicationLogLevel, _ = log.ParseLevel(c.ApplicationLogLevelString)
	c.HistogramMetricBuckets, _ = c.parseHistogramBuckets(c.HistogramMetricBucketsString, prometheus.DefBuckets)
	return nil
}

func (c *Config) ToOptions() traject.Options {
	return traject.Options{
		// generic:
		Address:                 c.Address,
		SupportListener:         c.SupportListener,
		ShutdownTimeout:         c.ShutdownTimeout,
		EnableCompression:       c.EnableCompression,
		ReadHeaderTimeoutServer: c.ReadHeaderTimeout,
		ReadTimeoutServer:       c.ReadTimeoutServer,
		WriteTimeoutServer:      c.WriteTimeoutServer,
		IdleTimeoutServer:       c.IdleTimeoutServer,
		PrintRoutes:             c.PrintRoutes,

		// routes:
		RoutesFile:             c.RoutesFile,
		RoutesFilePollInterval: c.RoutesFilePollInterval,
		InlineRoutes:           c.InlineRoutes.Get(),

		// logging:
		ApplicationLogOutput: c.ApplicationLog,
		ApplicationLogLevel:  c.ApplicationLogLevel.String(),
		ApplicationLogPrefix: c.ApplicationLogPrefix,
		AccessLogOutput:      c.AccessLog,
		AccessLogDisabled:    c.AccessLogDisabled,
		AccessLogJSONEnabled: c.AccessLogJSONEnabled,

		// metrics:
		EnablePrometheusMetrics: c.EnablePrometheusMetrics,
		MetricsPrefix:           c.MetricsPrefix,
		HistogramMetricBuckets:  c.HistogramMetricBuckets,
		EnableRuntimeMetrics:    c.EnableRuntimeMetrics,
	}
}

func (c *Config) parseHistogramBuckets(bucketString string, defaultBuckets []float64) ([]float64, error) {
	if bucketString == "" {
		return defaultBuckets, nil
	}

	var result []float64
	thresholds := strings.Split(bucketString, ",")
	for _, v := range thresholds {
		bucket, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse histogram-metric-buckets: %w", err)
		}
		result = append(result, bucket)
	}
	sort.Float64s(result)
	return result, nil
}
