package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/promptvault/internal/config"
	"github.com/JaimeStill/promptvault/internal/infrastructure"
	"github.com/JaimeStill/promptvault/pkg/cache"
	"github.com/JaimeStill/promptvault/pkg/database"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "promptvault",
			User:            "promptvault",
			Password:        "promptvault",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
			LockTimeout:     "5s",
		},
		Cache: cache.Config{
			Addr:        "localhost:6379",
			Prefix:      "promptvault:",
			TTL:         "1h",
			DialTimeout: "5s",
		},
		Lock: lock.Config{
			Backend:       "redis",
			Prefix:        "promptvault:lock:",
			TTL:           "30s",
			Wait:          "5s",
			RetryInterval: "50ms",
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Cache == nil {
		t.Error("Cache is nil")
	}
	if _, ok := infra.Locks.(*lock.Redis); !ok {
		t.Errorf("Locks: got %T, want *lock.Redis", infra.Locks)
	}
	if infra.Storage != nil {
		t.Error("Storage should be nil when disabled")
	}
}

func TestNewMemoryLocks(t *testing.T) {
	cfg := validConfig()
	cfg.Lock.Backend = "memory"

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := infra.Locks.(*lock.Memory); !ok {
		t.Errorf("Locks: got %T, want *lock.Memory", infra.Locks)
	}
}

func TestNewWithStorage(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Enabled:          true,
		ContainerName:    "prompt-archive",
		ConnectionString: azuriteConnString,
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidCacheConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Addr = ""

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for missing cache addr")
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Enabled:          true,
		ContainerName:    "prompt-archive",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}
