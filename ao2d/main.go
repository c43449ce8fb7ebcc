package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	converter "github.com/alice-run3/ao2d_go/pkg"
	"github.com/alice-run3/ao2d_go/pkg/esd"
)

const metricsJob = "ao2d"

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	configuration, err := LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	converter.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := run(ctx, configuration); err != nil {
		logger.Error(err.Error())
		stop()
		os.Exit(1)
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds()), "main")
	}
}

func newBackend(config converter.Configuration) (converter.Backend, error) {
	switch config.OutputFormat {
	case converter.OutputHDF5:
		return converter.NewHDF5Backend(config.FileOut, config.Partition, config.CompressionLevel)
	case converter.OutputROOT:
		return converter.NewROOTBackend(config.FileOut, config.Partition, config.CompressionLevel)
	case converter.OutputParquet:
		return converter.NewParquetBackend(config.FileOut, config.Partition)
	case converter.OutputMemory:
		return converter.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unsupported output format: %v", config.OutputFormat)
}

func run(ctx context.Context, config converter.Configuration) error {
	reader, err := esd.OpenFile(config.FileIn)
	if err != nil {
		return err
	}
	defer reader.Close()

	fileReader := NewFileReader(reader, config.Skip, config.MaxEvents, config.Verbosity)
	source := StartDecoding(ctx, fileReader, config.NumWorkers)
	defer source.Close()

	first, err := source.Next()
	if errors.Is(err, io.EOF) {
		logger.Info("No events to convert", "main")
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading first event: %w", err)
	}

	var dbConn *sqlx.DB
	if !config.NoDB {
		dbConn, err = converter.ConnectToDatabase(config.DBDriver, config.User, config.Passwd, config.Host, config.DBName)
		if err != nil {
			return fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()
		if err := converter.CreateBookkeepingTables(dbConn); err != nil {
			return err
		}
		converted, err := converter.IsRunConverted(dbConn, first.RunNumber, config.FileIn)
		if err != nil {
			return err
		}
		if converted && !config.Overwrite {
			return fmt.Errorf("run %d from %s already converted, set overwrite to convert it again", first.RunNumber, config.FileIn)
		}
	}

	registry := prometheus.NewRegistry()
	metrics, err := converter.NewMetrics(registry)
	if err != nil {
		return err
	}

	backend, err := newBackend(config)
	if err != nil {
		return err
	}
	conv, err := converter.NewConverter(config, backend, converter.Services{}, metrics)
	if err != nil {
		backend.Close()
		return err
	}

	runErr := conv.ProcessEvent(first)
	if runErr != nil {
		runErr = fmt.Errorf("error processing event 0: %w", runErr)
	} else {
		_, runErr = conv.Run(ctx, source)
	}
	if err := conv.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("error closing output: %w", err))
	}
	if runErr != nil {
		return runErr
	}

	summary := conv.Summary()
	converter.LogSummary(summary)

	if dbConn != nil {
		if err := converter.RecordConversion(dbConn, summary); err != nil {
			return err
		}
	}
	if config.PushgatewayURL != "" {
		if err := converter.PushMetrics(config.PushgatewayURL, metricsJob, summary.RunNumber, registry); err != nil {
			logger.Error(err.Error())
		}
	}
	return nil
}
