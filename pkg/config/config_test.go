package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseIntOrHex(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"72", 72, true},
		{"0x76", 0x76, true},
		{"0X48", 0x48, true},
		{"bad", 0, false},
		{"0xZZ", 0, false},
	}
	for _, tt := range tests {
		got, err := parseIntOrHex(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseIntOrHex(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("parseIntOrHex(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEVICE", "")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeAuto {
		t.Fatalf("mode: got %q", cfg.Mode)
	}
	if cfg.UploadDelay != 60*time.Second {
		t.Fatalf("upload delay: got %v", cfg.UploadDelay)
	}
	if cfg.DisplayDuration != time.Millisecond {
		t.Fatalf("display duration: got %v", cfg.DisplayDuration)
	}
	if cfg.Display.Width != 128 || cfg.Display.Height != 32 {
		t.Fatalf("display size: got %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Cloud(cfg.Mode).Enabled {
		t.Fatalf("cloud should be disabled without a config section")
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	t.Setenv("DEVICE", "")
	cfg, err := Load([]string{
		"-mode", "hardware",
		"-upload-delay", "5s",
		"-display-duration", "20ms",
		"-bme280-address", "0x77",
		"-light-channel", "2",
		"-mqtt-server", "tcp://broker:1883",
		"-mqtt-topic", "enviro/telemetry",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeHardware {
		t.Fatalf("mode: got %q", cfg.Mode)
	}
	if cfg.UploadDelay != 5*time.Second || cfg.DisplayDuration != 20*time.Millisecond {
		t.Fatalf("durations: got %v %v", cfg.UploadDelay, cfg.DisplayDuration)
	}
	if cfg.BME280Address != 0x77 || cfg.LightChannel != 2 {
		t.Fatalf("hardware flags: %+v", cfg)
	}
	cc := cfg.Cloud(cfg.Mode)
	if !cc.Enabled || cc.Type != CloudMQTT || cc.MQTT == nil {
		t.Fatalf("mqtt flags not applied: %+v", cc)
	}
	if cc.MQTT.Server != "tcp://broker:1883" || cc.MQTT.TelemetryTopic != "enviro/telemetry" {
		t.Fatalf("mqtt config: %+v", cc.MQTT)
	}
}

func TestLoadDeviceEnvForcesSubstitute(t *testing.T) {
	t.Setenv("DEVICE", "LOCAL_MACHINE")
	cfg, err := Load([]string{"-mode", "hardware"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeSubstitute {
		t.Fatalf("mode: got %q want substitute", cfg.Mode)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("DEVICE", "")
	cases := [][]string{
		{"-mode", "satellite"},
		{"-upload-delay", "0s"},
		{"-light-channel", "7"},
		{"-display-width", "0"},
	}
	for _, args := range cases {
		if _, err := Load(args); err == nil {
			t.Fatalf("Load(%v): expected error", args)
		}
	}
}

func TestSectionFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clouds = map[string]CloudConfig{
		SectionDefault: {Enabled: true, Type: "MQTT", MQTT: &MQTTConfig{Server: "tcp://a:1883"}},
		SectionLocal:   {Enabled: true, Type: CloudConsole},
	}
	if got := cfg.SectionFor(ModeHardware); got != SectionDefault {
		t.Fatalf("hardware section: got %q", got)
	}
	if got := cfg.SectionFor(ModeSubstitute); got != SectionLocal {
		t.Fatalf("substitute section: got %q", got)
	}
	if got := cfg.Cloud(ModeHardware).Type; got != CloudMQTT {
		t.Fatalf("type should be normalized, got %q", got)
	}

	delete(cfg.Clouds, SectionLocal)
	if got := cfg.SectionFor(ModeSubstitute); got != SectionDefault {
		t.Fatalf("substitute fallback: got %q", got)
	}

	cfg.CloudSection = "lab"
	if got := cfg.SectionFor(ModeHardware); got != "lab" {
		t.Fatalf("explicit section: got %q", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("DEVICE", "")
	js := `{
        "mode": "substitute",
        "upload_delay_sec": 30,
        "display_duration_ms": 250,
        "display": {"width": 160, "height": 32, "title": "lab"},
        "cloud": {
            "LOCAL": {"enabled": true, "type": "kafka",
                "kafka": {"brokers": ["localhost:9092"], "telemetry_topic": "enviro.telemetry"}},
            "DEFAULT": {"enabled": false, "type": "mqtt"}
        }
    }`
	path := filepath.Join(t.TempDir(), "device.json")
	if err := os.WriteFile(path, []byte(js), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load([]string{"-config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UploadDelay != 30*time.Second || cfg.DisplayDuration != 250*time.Millisecond {
		t.Fatalf("durations: got %v %v", cfg.UploadDelay, cfg.DisplayDuration)
	}
	if cfg.Display.Width != 160 || cfg.Display.Title != "lab" {
		t.Fatalf("display: %+v", cfg.Display)
	}
	if cfg.Display.Foreground != "#ffffff" {
		t.Fatalf("unset display fields should keep defaults, got %+v", cfg.Display)
	}
	cc := cfg.Cloud(cfg.Mode)
	if cc.Type != CloudKafka || cc.Kafka == nil || cc.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("kafka section: %+v", cc)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Setenv("DEVICE", "")
	if _, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatalf("expected read error")
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load([]string{"-config", path}); err == nil {
		t.Fatalf("expected parse error")
	}
	path = filepath.Join(t.TempDir(), "nobroker.json")
	if err := os.WriteFile(path, []byte(`{"cloud":{"DEFAULT":{"enabled":true,"type":"mqtt"}}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load([]string{"-config", path}); err == nil {
		t.Fatalf("expected validation error for mqtt without server")
	}
}
