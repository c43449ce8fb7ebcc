package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	converter "github.com/alice-run3/ao2d_go/pkg"
	"gopkg.in/yaml.v3"
)

// LoadConfiguration reads a JSON or YAML (.yaml, .yml) configuration file.
// Fields missing from the file keep their default values.
func LoadConfiguration(filename string) (converter.Configuration, error) {
	config := converter.DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, err
	}
	if err := validateConfiguration(config); err != nil {
		return config, err
	}
	return config, nil
}

func validateConfiguration(config converter.Configuration) error {
	if config.FileIn == "" {
		return fmt.Errorf("file_in is required")
	}
	if config.FileOut == "" && config.OutputFormat != converter.OutputMemory {
		return fmt.Errorf("file_out is required for %s output", config.OutputFormat)
	}
	if config.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be positive, got %d", config.NumWorkers)
	}
	if config.Skip < 0 || config.MaxEvents < 0 {
		return fmt.Errorf("skip and max_events cannot be negative")
	}
	return nil
}

func printConfiguration(config converter.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Output format: %s", config.OutputFormat), "config")
	logger.Info(fmt.Sprintf("Partition: %s", config.Partition), "config")
	logger.Info(fmt.Sprintf("Task mode: %s", config.TaskMode), "config")
	logger.Info(fmt.Sprintf("Use event cuts: %t", config.UseEventCuts), "config")
	logger.Info(fmt.Sprintf("Max vertex z: %g", config.MaxVertexZ), "config")
	logger.Info(fmt.Sprintf("Min tracks: %d", config.MinTracks), "config")
	logger.Info(fmt.Sprintf("Prune list: %s", config.PruneList), "config")
	logger.Info(fmt.Sprintf("Disabled tables: %s", strings.Join(config.DisabledTables, " ")), "config")
	logger.Info(fmt.Sprintf("Events per cluster: %d", config.EventsPerCluster), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("MC index scope: %s", config.MCIndexScope), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Overwrite: %t", config.Overwrite), "config")
	logger.Info(fmt.Sprintf("Pushgateway: %s", config.PushgatewayURL), "config")
}
