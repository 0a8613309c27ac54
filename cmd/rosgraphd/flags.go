package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Validate    bool
	ShowVersion bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("ROSGRAPH_CONFIG", "configs/rosgraph.json"),
		"Path to configuration file (env: ROSGRAPH_CONFIG)")
	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("ROSGRAPH_CONFIG", "configs/rosgraph.json"),
		"Path to configuration file (env: ROSGRAPH_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level", "",
		"Override log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", "",
		"Override log format: text, json")

	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - ROS 2 graph discovery daemon over NATS\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n", appName)
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
