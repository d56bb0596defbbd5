package backend

import (
	"context"

	"kakebo/internal/events"
	"kakebo/internal/ports"
	"kakebo/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the store and an optional cleanup function
type StoreResult struct {
	Store   ports.Store
	Cleanup CleanupFunc
}

// Factory builds the pluggable infrastructure selected by configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreatePublisher never fails hard; an unreachable broker yields a no-op publisher.
	CreatePublisher(config Config) events.Publisher
	// CreateSubscriber returns nil when events are disabled.
	CreateSubscriber(config Config) (events.Subscriber, error)
	CreateExporter(ctx context.Context, config Config) (sheets.ReportExporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string
	SeedFile     string

	Events       EventsType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	ReportSheetName          string
}

type (
	BackendType string
	EventsType  string
)

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"

	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
