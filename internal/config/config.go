package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const DefaultSeedFile = "seed_data.json"

// Database selects and locates the metric store.
type Database struct {
	DSN string `long:"database" description:"Store DSN: postgres:// URL, sqlite file path or 'memory'" default:"metrics.db" env:"METRICBOARD_DATABASE"`
}

// Logging configures the zap logger and the optional log file.
type Logging struct {
	LogLevel      string `long:"log-level" description:"Verbosity level for stdout and log file" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info" env:"METRICBOARD_LOG_LEVEL"`
	LogFile       string `long:"log-file" description:"File name to store logs" env:"METRICBOARD_LOG_FILE"`
	LogFileRotate bool   `long:"log-file-rotate" description:"Rotate log files" env:"METRICBOARD_LOG_FILE_ROTATE"`
	LogFileSize   int    `long:"log-file-size" description:"Maximum size in MB of the log file before it gets rotated" default:"100" env:"METRICBOARD_LOG_FILE_SIZE"`
	LogFileAge    int    `long:"log-file-age" description:"Number of days to retain old log files, 0 means forever" default:"0" env:"METRICBOARD_LOG_FILE_AGE"`
	LogFileNumber int    `long:"log-file-number" description:"Maximum number of old log files to retain, 0 to retain all" default:"0" env:"METRICBOARD_LOG_FILE_NUMBER"`
}

// Server holds the HTTP API options.
type Server struct {
	Address         string        `short:"a" long:"address" description:"TCP address in the form 'host:port' to listen on" default:":8000" env:"METRICBOARD_ADDRESS"`
	SeedFile        string        `long:"seed-file" description:"Seed file imported at startup when the store is empty" default:"seed_data.json" env:"METRICBOARD_SEED_FILE"`
	NoSeed          bool          `long:"no-seed" description:"Do not import the seed file at startup" env:"METRICBOARD_NO_SEED"`
	CORSOrigins     []string      `long:"cors-origin" description:"Allowed cross-origin request origin, '*' allows any" default:"http://localhost:5173" default:"http://localhost:3000" env:"METRICBOARD_CORS_ORIGINS" env-delim:","`
	CORSHeaders     []string      `long:"cors-header" description:"Allowed cross-origin request header" default:"Accept" default:"Accept-Encoding" default:"Authorization" default:"Content-Encoding" default:"Content-Type" default:"Origin" default:"X-Requested-With" env:"METRICBOARD_CORS_HEADERS" env-delim:","`
	CORSNoCreds     bool          `long:"cors-no-credentials" description:"Do not allow credentials on cross-origin requests" env:"METRICBOARD_CORS_NO_CREDENTIALS"`
	PrometheusPath  string        `long:"prometheus-path" description:"Path of the Prometheus endpoint, empty disables it" default:"/debug/prometheus" env:"METRICBOARD_PROMETHEUS_PATH"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" description:"Time allowed for in-flight requests on shutdown" default:"10s" env:"METRICBOARD_SHUTDOWN_TIMEOUT"`
}

// ServerOptions is the command line of the server binary.
type ServerOptions struct {
	Server   Server   `group:"Server"`
	Database Database `group:"Database"`
	Logging  Logging  `group:"Logging"`
}

// ManageOptions holds the global options of the manage binary.
type ManageOptions struct {
	Database Database `group:"Database"`
	Logging  Logging  `group:"Logging"`
}

// ErrHelp is returned by ParseServer after the help message was written.
var ErrHelp = errors.New("help requested")

// ParseServer parses the server command line. Environment variables fill in
// options not given as arguments.
func ParseServer(args []string, w io.Writer) (*ServerOptions, error) {
	opts := new(ServerOptions)
	parser := flags.NewParser(opts, flags.HelpFlag)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(w, err)
			return nil, ErrHelp
		}
		parser.WriteHelp(w)
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unknown argument(s): %v", rest)
	}
	return opts, nil
}
