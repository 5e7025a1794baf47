package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
)

// Configuration file defaults. Every field has a usable default so the
// poller never observes an unset value, even with no config file at all.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 23
	DefaultInterval = 2 * time.Second
	DefaultCommand  = "ALLR"
	DefaultTimeout  = 10 * time.Second

	// ConfigFileName is looked up in the user's home directory unless
	// overridden by --config or MOLBOX_CONFIG.
	ConfigFileName = ".molbox_tester"

	configSection = "molbox"
	maxPort       = 65535
)

var errFactory = errors.New()

type Config struct {
	Host     string
	Port     int
	Interval time.Duration
	Command  string
	Timeout  time.Duration
	Debug    bool

	// Path is the config file location that was consulted (it may not exist).
	Path string
}

// String renders the resolved configuration the way it is announced at
// startup.
func (c *Config) String() string {
	return fmt.Sprintf("host=%s, port=%d, interval=%ss, command=%s, timeout=%ss",
		c.Host, c.Port, Seconds(c.Interval), c.Command, Seconds(c.Timeout))
}

// Seconds renders a duration as a bare seconds count, the way interval and
// timeout are written in the configuration file.
func Seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Load resolves the configuration from flags, the environment, and the
// [molbox] section of the INI config file. A missing or malformed file is
// never an error: affected values fall back to defaults and startup proceeds.
// Only a flag-parse failure is returned to the caller.
func Load() (*Config, error) {
	fs := pflag.NewFlagSet("molbox", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	configFlag := fs.StringP("config", "c", "", "path to the configuration file")
	debugFlag := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if *debugFlag {
		logger.SetLogLevel(logger.DebugLevel)
	} else {
		logger.SetLogLevel(logger.InfoLevel)
	}

	config := &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Interval: DefaultInterval,
		Command:  DefaultCommand,
		Timeout:  DefaultTimeout,
		Debug:    *debugFlag,
		Path:     resolvePath(*configFlag),
	}

	v := viper.New()
	v.SetConfigType("ini")
	v.SetDefault(key("host"), DefaultHost)
	v.SetDefault(key("port"), DefaultPort)
	v.SetDefault(key("interval"), DefaultInterval.Seconds())
	v.SetDefault(key("command"), DefaultCommand)
	v.SetDefault(key("timeout"), DefaultTimeout.Seconds())

	if readConfigFile(v, config.Path) {
		applyFileValues(v, config)
	}

	return config, nil
}

// resolvePath picks the config file location: flag, then environment, then
// the user's home directory. An unresolvable home is reported and the file
// step is skipped entirely.
func resolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath := os.Getenv("MOLBOX_CONFIG"); envPath != "" {
		return envPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot determine home directory, using default configuration")
		return ""
	}

	return filepath.Join(home, ConfigFileName)
}

// readConfigFile loads the file into v. Returns false when there is nothing
// to apply, i.e. the file is missing or cannot be parsed.
func readConfigFile(v *viper.Viper, path string) bool {
	if path == "" {
		return false
	}

	if _, err := os.Stat(path); err != nil {
		logger.Info().Msgf("No configuration file found at %s, using defaults", path)
		logSampleConfig()
		return false
	}

	logger.Info().Msgf("Loading configuration from %s", path)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warn().Err(err).Msgf("Failed to parse %s, using defaults", path)
		return false
	}

	return true
}

// applyFileValues copies values from the [molbox] section into config,
// replacing anything unusable with its default.
func applyFileValues(v *viper.Viper, config *Config) {
	if host := strings.TrimSpace(v.GetString(key("host"))); host != "" {
		config.Host = host
	} else {
		warnDefault("host", DefaultHost)
	}

	if port := v.GetInt(key("port")); port >= 1 && port <= maxPort {
		config.Port = port
	} else {
		warnDefault("port", DefaultPort)
	}

	if interval, ok := positiveSeconds(v.GetFloat64(key("interval"))); ok {
		config.Interval = interval
	} else {
		warnDefault("interval", DefaultInterval)
	}

	if command := strings.TrimSpace(v.GetString(key("command"))); command != "" {
		config.Command = command
	} else {
		warnDefault("command", DefaultCommand)
	}

	if timeout, ok := positiveSeconds(v.GetFloat64(key("timeout"))); ok {
		config.Timeout = timeout
	} else {
		warnDefault("timeout", DefaultTimeout)
	}
}

// positiveSeconds converts a float second count into a duration, rejecting
// zero, negatives, NaN, infinities, and values that overflow a Duration.
func positiveSeconds(seconds float64) (time.Duration, bool) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, false
	}

	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		return 0, false
	}

	return d, true
}

func key(name string) string {
	return configSection + "." + name
}

func warnDefault(name string, fallback interface{}) {
	logger.Warn().Msgf("Ignoring invalid %s in configuration file, using default %v", name, fallback)
}

func logSampleConfig() {
	logger.Info().Msg("You can create a configuration file with the following format:")
	for _, line := range []string{
		"[" + configSection + "]",
		fmt.Sprintf("host = %s", DefaultHost),
		fmt.Sprintf("port = %d", DefaultPort),
		fmt.Sprintf("interval = %.1f", DefaultInterval.Seconds()),
		fmt.Sprintf("command = %s", DefaultCommand),
		fmt.Sprintf("timeout = %.0f", DefaultTimeout.Seconds()),
	} {
		logger.Info().Msg(line)
	}
}
