package backend

import (
	"context"

	"budgetadvisor/internal/services"
	"budgetadvisor/internal/worker"
)

// Store is everything a storage backend provides: credentials, history and
// the export bookkeeping used by the worker.
type Store interface {
	services.CredentialStore
	services.HistoryStore
	worker.ExportStore
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the opened store, the optional publisher and a cleanup
// function releasing both.
type Result struct {
	Store Store
	// Publisher is nil when no broker is configured.
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP is optional; an empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
