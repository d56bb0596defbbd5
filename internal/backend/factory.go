package backend

import (
	"context"
	"fmt"

	"kakebo/internal/amqp"
	"kakebo/internal/events"
	"kakebo/internal/events/kafka"
	"kakebo/internal/log"
	"kakebo/internal/sheets"
	gsheet "kakebo/internal/sheets/google"
	sheetsmem "kakebo/internal/sheets/memory"
	"kakebo/internal/storage"
	"kakebo/internal/storage/memory"
	"kakebo/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

var _ Factory = (*DefaultFactory)(nil)

func NewFactory(logger *log.Logger) *DefaultFactory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		repo, err := postgres.New(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		store, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory store: %w", err)
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) CreatePublisher(config Config) events.Publisher {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			return events.Nop{}
		}
		f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		return client

	case KafkaEvents:
		f.logger.Info("Initialized Kafka publisher", "brokers", config.KafkaBrokers, "topic", config.KafkaTopic)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)

	default:
		return events.Nop{}
	}
}

func (f *DefaultFactory) CreateSubscriber(config Config) (events.Subscriber, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP subscriber: %w", err)
		}
		return client, nil

	case KafkaEvents:
		return kafka.NewSubscriber(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID), nil

	default:
		return nil, nil
	}
}

// CreateExporter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-memory recorder otherwise.
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.ReportExporter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Warn("No spreadsheet configured, exports are kept in memory only")
		return sheetsmem.NewRecorder(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.ReportSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
	}
	f.logger.Info("Initialized Google Sheets exporter", "sheet", config.ReportSheetName)
	return client, nil
}
