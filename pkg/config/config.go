package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModeAuto       = "auto"
	ModeHardware   = "hardware"
	ModeSubstitute = "substitute"

	SectionDefault = "DEFAULT"
	SectionLocal   = "LOCAL"

	CloudMQTT    = "mqtt"
	CloudKafka   = "kafka"
	CloudConsole = "console"
)

type MQTTConfig struct {
	Server          string `json:"server"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ClientID        string `json:"client_id"`
	TelemetryTopic  string `json:"telemetry_topic"`
	CommandTopic    string `json:"command_topic"`
	QoS             byte   `json:"qos"`
	DiscoveryPrefix string `json:"discovery_prefix,omitempty"`
	DiscoveryName   string `json:"discovery_name,omitempty"`
	ConnectAttempts uint   `json:"connect_attempts,omitempty"`
}

type KafkaConfig struct {
	Brokers        []string `json:"brokers"`
	TelemetryTopic string   `json:"telemetry_topic"`
	CommandTopic   string   `json:"command_topic"`
	GroupID        string   `json:"group_id"`
	DeviceID       string   `json:"device_id"`
}

// CloudConfig is one broker profile, selected by section name.
type CloudConfig struct {
	Enabled bool         `json:"enabled"`
	Type    string       `json:"type"`
	MQTT    *MQTTConfig  `json:"mqtt,omitempty"`
	Kafka   *KafkaConfig `json:"kafka,omitempty"`
}

type DisplayConfig struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Title      string `json:"title"`
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

type Config struct {
	Mode              string                 `json:"mode"`
	DisplayDuration   time.Duration          `json:"-"`
	UploadDelay       time.Duration          `json:"-"`
	DisplayDurationMs int                    `json:"display_duration_ms"`
	UploadDelaySec    int                    `json:"upload_delay_sec"`
	I2CBus            string                 `json:"i2c_bus"`
	BME280Address     int                    `json:"bme280_address"`
	ADS1115Address    int                    `json:"ads1115_address"`
	SampleRate        int                    `json:"sample_rate"`
	LightChannel      int                    `json:"light_channel"`
	LightScale        float64                `json:"light_scale"`
	LightOffset       float64                `json:"light_offset"`
	SensorMaxFailures int                    `json:"sensor_max_failures"`
	Display           DisplayConfig          `json:"display"`
	CloudSection      string                 `json:"cloud_section"`
	Clouds            map[string]CloudConfig `json:"cloud"`
	LogLevel          string                 `json:"log_level"`
	LogFormat         string                 `json:"log_format"`
	LogFile           string                 `json:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		Mode:              ModeAuto,
		DisplayDurationMs: 1,
		UploadDelaySec:    60,
		I2CBus:            "",
		BME280Address:     0x76,
		ADS1115Address:    0x48,
		SampleRate:        128,
		LightChannel:      0,
		// 0..4.096V photodiode front-end mapped onto 0..2000 lux
		LightScale:        2000.0 / 4.096,
		LightOffset:       0,
		SensorMaxFailures: 5,
		Display: DisplayConfig{
			Width:      128,
			Height:     32,
			Title:      "enviro",
			Background: "#000000",
			Foreground: "#ffffff",
		},
		Clouds:    map[string]CloudConfig{},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFromFlags loads configuration from os.Args.
func LoadFromFlags() (Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("enviro-to-mqtt", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagMode := fs.String("mode", "", "operating mode: auto|hardware|substitute")
	flagDisplayDuration := fs.Duration("display-duration", -1, "Substitute display key wait per iteration (e.g. 1ms)")
	flagUploadDelay := fs.Duration("upload-delay", -1, "Hardware delay between readings (e.g. 60s)")
	flagSection := fs.String("cloud-config-section", "", "Cloud config section (default DEFAULT, LOCAL in substitute mode)")
	flagI2CBus := fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagBMEAddr := fs.String("bme280-address", "", "BME280 I2C address (decimal or 0x hex)")
	flagADSAddr := fs.String("ads1115-address", "", "ADS1115 I2C address (decimal or 0x hex)")
	flagLightChannel := fs.Int("light-channel", -1, "ADS1115 channel wired to the light sensor")
	flagWidth := fs.Int("display-width", -1, "Display width in pixels")
	flagHeight := fs.Int("display-height", -1, "Display height in pixels")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT telemetry topic")
	flagCommandTopic := fs.String("mqtt-command-topic", "", "MQTT command topic")
	flagLogLevel := fs.String("log-level", "", "log level: debug|info|warn|error")
	flagLogFormat := fs.String("log-format", "", "log format: text|json")
	flagLogFile := fs.String("log-file", "", "write logs to this file instead of stderr")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.DisplayDuration = time.Duration(cfg.DisplayDurationMs) * time.Millisecond
	cfg.UploadDelay = time.Duration(cfg.UploadDelaySec) * time.Second

	if *flagMode != "" {
		cfg.Mode = *flagMode
	}
	if *flagDisplayDuration >= 0 {
		cfg.DisplayDuration = *flagDisplayDuration
	}
	if *flagUploadDelay >= 0 {
		cfg.UploadDelay = *flagUploadDelay
	}
	if *flagSection != "" {
		cfg.CloudSection = *flagSection
	}
	if *flagI2CBus != "" {
		cfg.I2CBus = *flagI2CBus
	}
	if *flagBMEAddr != "" {
		v, err := parseIntOrHex(*flagBMEAddr)
		if err != nil {
			return cfg, fmt.Errorf("bme280-address: %w", err)
		}
		cfg.BME280Address = v
	}
	if *flagADSAddr != "" {
		v, err := parseIntOrHex(*flagADSAddr)
		if err != nil {
			return cfg, fmt.Errorf("ads1115-address: %w", err)
		}
		cfg.ADS1115Address = v
	}
	if *flagLightChannel != -1 {
		cfg.LightChannel = *flagLightChannel
	}
	if *flagWidth != -1 {
		cfg.Display.Width = *flagWidth
	}
	if *flagHeight != -1 {
		cfg.Display.Height = *flagHeight
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if *flagLogFormat != "" {
		cfg.LogFormat = *flagLogFormat
	}
	if *flagLogFile != "" {
		cfg.LogFile = *flagLogFile
	}

	// DEVICE=LOCAL_MACHINE is set on development machines
	if os.Getenv("DEVICE") == "LOCAL_MACHINE" {
		cfg.Mode = ModeSubstitute
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))

	// map mqtt flags into the selected section, creating an mqtt profile if needed
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" || *flagCommandTopic != "" {
		section := cfg.SectionFor(cfg.Mode)
		cc := cfg.Clouds[section]
		if cc.Type == "" {
			cc = CloudConfig{Enabled: true, Type: CloudMQTT}
		}
		if cc.MQTT == nil {
			cc.MQTT = &MQTTConfig{}
		}
		if *flagMQTTServer != "" {
			cc.MQTT.Server = *flagMQTTServer
		}
		if *flagMQTTUser != "" {
			cc.MQTT.Username = *flagMQTTUser
		}
		if *flagMQTTPass != "" {
			cc.MQTT.Password = *flagMQTTPass
		}
		if *flagClientID != "" {
			cc.MQTT.ClientID = *flagClientID
		}
		if *flagTopic != "" {
			cc.MQTT.TelemetryTopic = *flagTopic
		}
		if *flagCommandTopic != "" {
			cc.MQTT.CommandTopic = *flagCommandTopic
		}
		if cfg.Clouds == nil {
			cfg.Clouds = map[string]CloudConfig{}
		}
		cfg.Clouds[section] = cc
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values the loop and the hardware depend on.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeHardware, ModeSubstitute:
	default:
		return fmt.Errorf("invalid mode %q (allowed: auto, hardware, substitute)", c.Mode)
	}
	if c.UploadDelay <= 0 {
		return errors.New("upload-delay must be > 0")
	}
	if c.DisplayDuration < 0 {
		return errors.New("display-duration must be >= 0")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.LightChannel < 0 || c.LightChannel > 3 {
		return fmt.Errorf("light-channel must be 0..3, got %d", c.LightChannel)
	}
	if c.SampleRate <= 0 {
		return errors.New("sample-rate must be > 0")
	}
	for name, cc := range c.Clouds {
		if err := cc.validate(); err != nil {
			return fmt.Errorf("cloud section %s: %w", name, err)
		}
	}
	return nil
}

func (cc CloudConfig) validate() error {
	if !cc.Enabled {
		return nil
	}
	switch strings.ToLower(cc.Type) {
	case CloudMQTT:
		if cc.MQTT == nil || cc.MQTT.Server == "" {
			return errors.New("mqtt server is required")
		}
		if cc.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt qos must be 0..2, got %d", cc.MQTT.QoS)
		}
	case CloudKafka:
		if cc.Kafka == nil || len(cc.Kafka.Brokers) == 0 {
			return errors.New("kafka brokers are required")
		}
		if cc.Kafka.TelemetryTopic == "" {
			return errors.New("kafka telemetry_topic is required")
		}
	case CloudConsole:
	default:
		return fmt.Errorf("unknown cloud type %q", cc.Type)
	}
	return nil
}

// SectionFor returns the cloud section used in the given mode.
func (c Config) SectionFor(mode string) string {
	if c.CloudSection != "" {
		return c.CloudSection
	}
	if mode == ModeSubstitute {
		if _, ok := c.Clouds[SectionLocal]; ok {
			return SectionLocal
		}
	}
	return SectionDefault
}

// Cloud returns the broker profile for the given mode. A missing section
// yields a disabled profile.
func (c Config) Cloud(mode string) CloudConfig {
	cc, ok := c.Clouds[c.SectionFor(mode)]
	if !ok {
		return CloudConfig{}
	}
	cc.Type = strings.ToLower(cc.Type)
	return cc
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}
