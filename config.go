package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
	"i4.energy/across/tellogw/motion"
	"i4.energy/across/tellogw/tello"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the Wi-Fi modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// TxBufferSize and RxBufferSize bound a single write to and line from the modem
	TxBufferSize int `yaml:"tx_buffer_size"`
	RxBufferSize int `yaml:"rx_buffer_size"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`

	// SSID is the drone's access point; Password is empty for an open network
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	DroneIP  string `yaml:"drone_ip"`
	// DronePort is the drone's UDP command port
	DronePort int `yaml:"drone_port"`
	// ConnectOnStart runs the connection sequence before serving requests
	ConnectOnStart bool `yaml:"connect_on_start"`

	// SensorPort is the serial port of the tilt sensor board; empty disables motion control
	SensorPort string `yaml:"sensor_port"`
	SensorBaud int    `yaml:"sensor_baud"`
	// TiltThreshold is the pitch and roll dead band
	TiltThreshold int `yaml:"tilt_threshold"`
	// YawLow and YawHigh bound the resting band of the vertical axis
	YawLow  int `yaml:"yaw_low"`
	YawHigh int `yaml:"yaw_high"`
	// MoveDistance is the distance of each movement command, in centimetres
	MoveDistance int `yaml:"move_distance"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the drone or the motion controller cannot use
func (c *Config) Validate() error {
	if c.MoveDistance < tello.MinDistance || c.MoveDistance > tello.MaxDistance {
		return fmt.Errorf("move distance %d not in [%d, %d]", c.MoveDistance, tello.MinDistance, tello.MaxDistance)
	}
	if c.YawLow >= c.YawHigh {
		return fmt.Errorf("yaw band [%d, %d] is empty", c.YawLow, c.YawHigh)
	}
	if c.TiltThreshold < 0 {
		return errors.New("tilt threshold must not be negative")
	}
	return nil
}

// Thresholds returns the motion controller settings
func (c *Config) Thresholds() motion.Thresholds {
	return motion.Thresholds{
		Tilt:     c.TiltThreshold,
		YawLow:   c.YawLow,
		YawHigh:  c.YawHigh,
		Distance: c.MoveDistance,
	}
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		th := motion.DefaultThresholds()

		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.TxBufferSize = 128
		c.RxBufferSize = 128
		c.LogLevel = "info"
		c.DroneIP = tello.DefaultIP
		c.DronePort = tello.DefaultCommandPort
		c.SensorBaud = 115200
		c.TiltThreshold = th.Tilt
		c.YawLow = th.YawLow
		c.YawHigh = th.YawHigh
		c.MoveDistance = th.Distance
		return nil
	}
}

// WithFile loads configuration from a YAML file. Keys missing from the file
// keep their current values. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		envInt("BAUD_RATE", &c.BaudRate)

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if ssid := os.Getenv("WIFI_SSID"); ssid != "" {
			c.SSID = ssid
		}

		if password, ok := os.LookupEnv("WIFI_PASSWORD"); ok {
			c.Password = password
		}

		if ip := os.Getenv("DRONE_IP"); ip != "" {
			c.DroneIP = ip
		}

		envInt("DRONE_PORT", &c.DronePort)

		if sensor := os.Getenv("SENSOR_PORT"); sensor != "" {
			c.SensorPort = sensor
		}

		envInt("TILT_THRESHOLD", &c.TiltThreshold)

		return nil
	}
}

// envInt sets *dst from an integer variable; unparsable values are ignored
func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				flagInt(f, &c.BaudRate)
			case "log-level":
				c.LogLevel = f.Value.String()
			case "ssid":
				c.SSID = f.Value.String()
			case "password":
				c.Password = f.Value.String()
			case "drone-ip":
				c.DroneIP = f.Value.String()
			case "drone-port":
				flagInt(f, &c.DronePort)
			case "connect":
				c.ConnectOnStart = f.Value.String() == "true"
			case "sensor-port":
				c.SensorPort = f.Value.String()
			case "sensor-baud":
				flagInt(f, &c.SensorBaud)
			case "tilt-threshold":
				flagInt(f, &c.TiltThreshold)
			case "move-distance":
				flagInt(f, &c.MoveDistance)
			}

		})
		return nil
	}

}

func flagInt(f *flag.Flag, dst *int) {
	if n, err := strconv.Atoi(f.Value.String()); err == nil {
		*dst = n
	}
}
