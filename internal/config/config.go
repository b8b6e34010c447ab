package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDataDir = "/home/sentinel"
const defaultListenAddress = ":8080"

// Configuration holds every recognized option as read from the environment.
// Components unmarshal from it, or use the typed Get* constructors below.
type Configuration map[string]any

// ReadConfig loads the environment (including the optional .env file under
// DATA_DIR) into a Configuration. Nothing about the instrument is hard-coded
// here; the address and endpoints all come from the environment.
func ReadConfig() Configuration {
	c := Configuration{}

	logLevel := os.Getenv("LOG_LEVEL")
	level := ParseLogLevel(logLevel)
	c["log_level"] = level.String()
	SetLogLevel(level)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	c["data_dir"] = dataDir

	// The .env file is optional; plain environment variables win when it is
	// absent.
	if err := godotenv.Load(filepath.Join(dataDir, ".env")); err != nil {
		logrus.Debugf("No .env file under %s, reading from environment variables", dataDir)
	}

	c["instrument_addr"] = strings.TrimSpace(os.Getenv("INSTRUMENT_ADDR"))

	scpiAddr := os.Getenv("INSTRUMENT_SCPI_ADDR")
	if scpiAddr == "" && c["instrument_addr"] != "" {
		// Port 5025 is the conventional raw SCPI socket.
		scpiAddr = net.JoinHostPort(c["instrument_addr"].(string), "5025")
	}
	c["instrument_scpi_addr"] = scpiAddr

	statusURL := os.Getenv("INSTRUMENT_STATUS_URL")
	if statusURL == "" && c["instrument_addr"] != "" {
		statusURL = fmt.Sprintf("http://%s/pm/index.html", c["instrument_addr"])
	}
	c["instrument_status_url"] = statusURL

	resetURL := os.Getenv("INSTRUMENT_RESET_URL")
	if resetURL == "" && c["instrument_addr"] != "" {
		resetURL = fmt.Sprintf("http://%s/pm/api/system/reset", c["instrument_addr"])
	}
	c["instrument_reset_url"] = resetURL

	c["pdu_power_url"] = os.Getenv("PDU_POWER_URL")
	c["pdu_username"] = os.Getenv("PDU_USERNAME")
	c["pdu_password"] = os.Getenv("PDU_PASSWORD")

	c["reachability_timeout"] = envSeconds("REACHABILITY_TIMEOUT_SECONDS", 5)
	c["service_timeout"] = envSeconds("SERVICE_TIMEOUT_SECONDS", 5)
	c["scpi_timeout"] = envSeconds("SCPI_TIMEOUT_SECONDS", 2)

	c["poll_interval"] = envSeconds("POLL_INTERVAL_SECONDS", 30)
	c["failure_threshold"] = envInt("FAILURE_THRESHOLD", 3)
	c["monitor_event_buffer"] = envInt("MONITOR_EVENT_BUFFER", 64)

	c["soft_reset_timeout"] = envSeconds("SOFT_RESET_TIMEOUT_SECONDS", 5)
	c["soft_reset_settle"] = envSeconds("SOFT_RESET_SETTLE_SECONDS", 5)
	c["service_reset_timeout"] = envSeconds("SERVICE_RESET_TIMEOUT_SECONDS", 10)
	c["service_reset_settle"] = envSeconds("SERVICE_RESET_SETTLE_SECONDS", 10)
	c["power_cycle_timeout"] = envSeconds("POWER_CYCLE_TIMEOUT_SECONDS", 10)
	c["power_cycle_settle"] = envSeconds("POWER_CYCLE_SETTLE_SECONDS", 45)

	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}
	c["listen_address"] = listenAddress

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		c["api_key"] = apiKey
	}

	c["profiling_enabled"] = os.Getenv("ENABLE_PPROF") == "true"

	return c
}

// Validate fails fast on configuration that would leave the engine unable to
// address the instrument. Called once at startup, before any loop begins.
func (c Configuration) Validate() error {
	if c.GetString("instrument_addr", "") == "" {
		return fmt.Errorf("INSTRUMENT_ADDR is not set")
	}
	if c.GetDuration("poll_interval", 30) <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if v, err := c.GetInt("failure_threshold", 3); err != nil || v < 1 {
		return fmt.Errorf("failure threshold must be at least 1")
	}
	return nil
}

// Unmarshal unmarshals the configuration into the supplied struct.
func (c Configuration) Unmarshal(v any) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshalling configuration: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	return nil
}

func (c Configuration) DataDir() string {
	return c.GetString("data_dir", defaultDataDir)
}

func (c Configuration) ListenAddress() string {
	return c.GetString("listen_address", defaultListenAddress)
}

// GetInt safely extracts an int from the Configuration, with a default fallback.
func (c Configuration) GetInt(key string, def int) (int, error) {
	if v, ok := c[key]; ok {
		switch val := v.(type) {
		case int:
			return val, nil
		case int64:
			return int(val), nil
		case float64:
			return int(val), nil
		case float32:
			return int(val), nil
		default:
			return def, fmt.Errorf("value %v for key %q cannot be converted to int", val, key)
		}
	}
	return def, nil
}

func (c Configuration) GetDuration(key string, defSecs int) time.Duration {
	if v, ok := c[key]; ok {
		if val, ok := v.(time.Duration); ok {
			return val
		}
	}
	return time.Duration(defSecs) * time.Second
}

func (c Configuration) GetString(key string, def string) string {
	if v, ok := c[key]; ok {
		if val, ok := v.(string); ok && val != "" {
			return val
		}
	}
	return def
}

// GetBool safely extracts a bool from the Configuration, with a default fallback.
func (c Configuration) GetBool(key string, def bool) bool {
	if v, ok := c[key]; ok {
		if val, ok := v.(bool); ok {
			return val
		}
	}
	return def
}

// InstrumentConfig is everything the probes need to address the instrument.
type InstrumentConfig struct {
	Addr                string
	SCPIAddr            string
	StatusURL           string
	ResetURL            string
	ReachabilityTimeout time.Duration
	ServiceTimeout      time.Duration
	SCPITimeout         time.Duration
}

// GetInstrumentConfig constructs an InstrumentConfig directly from the
// Configuration.
func (c Configuration) GetInstrumentConfig() InstrumentConfig {
	return InstrumentConfig{
		Addr:                c.GetString("instrument_addr", ""),
		SCPIAddr:            c.GetString("instrument_scpi_addr", ""),
		StatusURL:           c.GetString("instrument_status_url", ""),
		ResetURL:            c.GetString("instrument_reset_url", ""),
		ReachabilityTimeout: c.GetDuration("reachability_timeout", 5),
		ServiceTimeout:      c.GetDuration("service_timeout", 5),
		SCPITimeout:         c.GetDuration("scpi_timeout", 2),
	}
}

// PDUConfig addresses the out-of-band power distribution unit used for the
// power-cycle recovery level. An empty PowerURL disables the level's action.
type PDUConfig struct {
	PowerURL string
	Username string
	Password string
	Timeout  time.Duration
}

func (c Configuration) GetPDUConfig() PDUConfig {
	return PDUConfig{
		PowerURL: c.GetString("pdu_power_url", ""),
		Username: c.GetString("pdu_username", ""),
		Password: c.GetString("pdu_password", ""),
		Timeout:  c.GetDuration("power_cycle_timeout", 10),
	}
}

// RecoveryConfig carries the per-level action timeouts and settle budgets.
type RecoveryConfig struct {
	SoftResetTimeout    time.Duration
	SoftResetSettle     time.Duration
	ServiceResetTimeout time.Duration
	ServiceResetSettle  time.Duration
	PowerCycleTimeout   time.Duration
	PowerCycleSettle    time.Duration
}

func (c Configuration) GetRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		SoftResetTimeout:    c.GetDuration("soft_reset_timeout", 5),
		SoftResetSettle:     c.GetDuration("soft_reset_settle", 5),
		ServiceResetTimeout: c.GetDuration("service_reset_timeout", 10),
		ServiceResetSettle:  c.GetDuration("service_reset_settle", 10),
		PowerCycleTimeout:   c.GetDuration("power_cycle_timeout", 10),
		PowerCycleSettle:    c.GetDuration("power_cycle_settle", 45),
	}
}

// MonitorConfig carries the monitor loop cadence settings.
type MonitorConfig struct {
	PollInterval     time.Duration
	FailureThreshold int
	EventBuffer      int
}

func (c Configuration) GetMonitorConfig() MonitorConfig {
	threshold, err := c.GetInt("failure_threshold", 3)
	if err != nil || threshold < 1 {
		threshold = 3
	}
	buffer, err := c.GetInt("monitor_event_buffer", 64)
	if err != nil || buffer < 1 {
		buffer = 64
	}
	return MonitorConfig{
		PollInterval:     c.GetDuration("poll_interval", 30),
		FailureThreshold: threshold,
		EventBuffer:      buffer,
	}
}

func envSeconds(key string, defSecs int) time.Duration {
	return time.Duration(envInt(key, defSecs)) * time.Second
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		logrus.Errorf("Error parsing %s=%q. Setting to default %d.", key, s, def)
		return def
	}
	return v
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Errorf("Invalid log level %q, setting to %s", logLevel, logrus.InfoLevel)
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
