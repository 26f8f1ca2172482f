package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"i4.energy/across/tellogw/metrics"
	"i4.energy/across/tellogw/modem"
	"i4.energy/across/tellogw/motion"
	"i4.energy/across/tellogw/tello"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the Wi-Fi modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("ssid", "", "Drone access point SSID")
	flag.String("password", "", "Drone access point password (empty for an open network)")
	flag.String("drone-ip", tello.DefaultIP, "Drone IP address")
	flag.Int("drone-port", tello.DefaultCommandPort, "Drone UDP command port")
	flag.Bool("connect", false, "Run the connection sequence on start")
	flag.String("sensor-port", "", "Serial port of the tilt sensor board (enables motion control)")
	flag.Int("sensor-baud", 115200, "Baud rate of the tilt sensor board")
	flag.Int("tilt-threshold", 15, "Pitch and roll dead band")
	flag.Int("move-distance", tello.MinDistance, "Distance of each movement command in cm")
	flag.Parse()

	path := *configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.New(registry)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithBufferSizes(config.TxBufferSize, config.RxBufferSize).
		WithLogger(logger.With("component", "modem")).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	link, err := modem.Open(context.Background(), modemConfig)
	if err != nil {
		logger.Error("Failed to open modem", "error", err)
		os.Exit(1)
	}

	channel := tello.NewChannel(link,
		tello.WithObserver(observer),
		tello.WithLogger(logger.With("component", "drone")),
	)
	sequencer := tello.NewSequencer(link, channel,
		tello.WithNetwork(config.SSID, config.Password),
		tello.WithDroneAddr(config.DroneIP, config.DronePort),
		tello.WithStepObserver(observer),
		tello.WithSequencerLogger(logger.With("component", "sequencer")),
	)

	bridge := &Bridge{
		Executor:  channel,
		Sequencer: sequencer,
		Motion: []motion.Option{
			motion.WithThresholds(config.Thresholds()),
			motion.WithObserver(observer),
			motion.WithLogger(logger.With("component", "motion")),
		},
		Logger: logger.With("component", "bridge"),
	}

	var sensor modem.Transport
	if config.SensorPort != "" {
		sensor, err = modem.SerialDialer{
			PortName: config.SensorPort,
			BaudRate: config.SensorBaud,
		}.Dial(context.Background())
		if err != nil {
			logger.Error("Failed to open sensor port", "error", err)
			os.Exit(1)
		}
		bridge.Sampler = motion.NewLineSampler(sensor, logger.With("component", "sensor"))
	}

	logger.Info("Starting Tello gateway", "serial_port", config.SerialPort, "drone", config.DroneIP, "motion", bridge.Sampler != nil)

	if config.ConnectOnStart {
		state, _, err := bridge.Connect(context.Background(), false, false)
		if err != nil {
			logger.Error("Connection sequence failed", "error", err, "state", state)
		}
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Bridge:  bridge,
			Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing modem connection")
	if err := link.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}
	if sensor != nil {
		if err := sensor.Close(); err != nil {
			logger.Error("Failed to close sensor port", "error", err)
		}
	}
}
