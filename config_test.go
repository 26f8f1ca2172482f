package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"i4.energy/across/tellogw/motion"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", config.BindAddress)
	assert.Equal(t, 115200, config.BaudRate)
	assert.Equal(t, 128, config.TxBufferSize)
	assert.Equal(t, "192.168.10.1", config.DroneIP)
	assert.Equal(t, 8889, config.DronePort)
	assert.Empty(t, config.SensorPort)
	assert.Equal(t, motion.DefaultThresholds(), config.Thresholds())
}

func TestWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tellogw.yaml")

	data := `
serial_port: /dev/ttyAMA0
ssid: TELLO-AB12CD
drone_port: 9000
connect_on_start: true
sensor_port: /dev/ttyACM0
tilt_threshold: 25
move_distance: 40
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadConfig(WithDefaults(), WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyAMA0", config.SerialPort)
	assert.Equal(t, "TELLO-AB12CD", config.SSID)
	assert.Equal(t, 9000, config.DronePort)
	assert.True(t, config.ConnectOnStart)
	assert.Equal(t, "/dev/ttyACM0", config.SensorPort)
	assert.Equal(t, motion.Thresholds{Tilt: 25, YawLow: 800, YawHigh: 1200, Distance: 40}, config.Thresholds())
	assert.Equal(t, 115200, config.BaudRate, "keys missing from the file keep their defaults")
}

func TestWithFileErrors(t *testing.T) {
	t.Run("Empty path is ignored", func(t *testing.T) {
		_, err := LoadConfig(WithDefaults(), WithFile(""))
		assert.NoError(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadConfig(WithDefaults(), WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("drone_port: [1, 2"), 0o600))

		_, err := LoadConfig(WithDefaults(), WithFile(path))
		assert.Error(t, err)
	})
}

func TestWithEnv(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyS1")
	t.Setenv("WIFI_SSID", "TELLO-FFFFFF")
	t.Setenv("WIFI_PASSWORD", "secret")
	t.Setenv("DRONE_PORT", "not-a-number")
	t.Setenv("TILT_THRESHOLD", "30")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS1", config.SerialPort)
	assert.Equal(t, "TELLO-FFFFFF", config.SSID)
	assert.Equal(t, "secret", config.Password)
	assert.Equal(t, 8889, config.DronePort, "invalid numbers are ignored")
	assert.Equal(t, 30, config.TiltThreshold)
}

func TestWithFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("serial-port", "/dev/ttyUSB0", "")
	fs.Int("drone-port", 8889, "")
	fs.Bool("connect", false, "")
	fs.Int("move-distance", 20, "")
	fs.String("ssid", "", "")
	require.NoError(t, fs.Parse([]string{"-drone-port", "8890", "-connect", "-move-distance", "100"}))

	t.Setenv("SERIAL_PORT", "/dev/ttyS1")

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fs))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS1", config.SerialPort, "unset flags do not override")
	assert.Equal(t, 8890, config.DronePort)
	assert.True(t, config.ConnectOnStart)
	assert.Equal(t, 100, config.MoveDistance)
}

func TestValidate(t *testing.T) {
	tests := map[string]ConfigOption{
		"distance too short": func(c *Config) error { c.MoveDistance = 10; return nil },
		"distance too long":  func(c *Config) error { c.MoveDistance = 501; return nil },
		"empty yaw band":     func(c *Config) error { c.YawLow = 1200; return nil },
		"negative tilt":      func(c *Config) error { c.TiltThreshold = -1; return nil },
	}

	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(WithDefaults(), opt)
			assert.Error(t, err)
		})
	}
}
