package config

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrConfigNotFound is returned when no configuration is stored for a provider
var ErrConfigNotFound = errors.New("provider configuration not found")

// StoredConfigInfo describes one stored provider configuration without its values
type StoredConfigInfo struct {
	Provider  string    `json:"provider"`
	Keys      []string  `json:"keys"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteStorage persists provider configurations
type SQLiteStorage struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *SQLiteStorage) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			// 10ms, 20ms, 40ms
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			time.Sleep(backoff)
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// NewSQLiteStorage opens (or creates) the database at dbPath
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	storage := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates the necessary tables
func (s *SQLiteStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS provider_configs (
		provider_name TEXT PRIMARY KEY,
		config_data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(query)
	return err
}

// SaveProviderConfig inserts or replaces the configuration of a provider
func (s *SQLiteStorage) SaveProviderConfig(providerName string, config map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return s.retryOperation(func() error {
		query := `
		INSERT INTO provider_configs (provider_name, config_data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider_name)
		DO UPDATE SET
			config_data = excluded.config_data,
			updated_at = CURRENT_TIMESTAMP
		`

		if _, err := s.db.Exec(query, providerName, string(configJSON)); err != nil {
			return fmt.Errorf("failed to save provider config: %w", err)
		}
		return nil
	}, 3)
}

// LoadProviderConfig loads the configuration of one provider
func (s *SQLiteStorage) LoadProviderConfig(providerName string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config map[string]string
	err := s.retryOperation(func() error {
		var configJSON string
		err := s.db.QueryRow(`SELECT config_data FROM provider_configs WHERE provider_name = ?`, providerName).Scan(&configJSON)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrConfigNotFound, providerName)
			}
			return fmt.Errorf("failed to load provider config: %w", err)
		}

		if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
		return nil
	}, 3)

	return config, err
}

// LoadAllProviderConfigs loads every stored configuration keyed by provider name
func (s *SQLiteStorage) LoadAllProviderConfigs() (map[string]map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var configs map[string]map[string]string
	err := s.retryOperation(func() error {
		rows, err := s.db.Query(`SELECT provider_name, config_data FROM provider_configs ORDER BY provider_name`)
		if err != nil {
			return fmt.Errorf("failed to query provider configs: %w", err)
		}
		defer rows.Close()

		configs = make(map[string]map[string]string)
		for rows.Next() {
			var providerName, configJSON string
			if err := rows.Scan(&providerName, &configJSON); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}

			var config map[string]string
			if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
				log.Printf("Warning: skipping unreadable config for provider %s: %v", providerName, err)
				continue
			}
			configs[providerName] = config
		}

		return rows.Err()
	}, 3)

	if err != nil {
		return nil, err
	}
	return configs, nil
}

// DeleteProviderConfig removes the configuration of a provider
func (s *SQLiteStorage) DeleteProviderConfig(providerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		result, err := s.db.Exec(`DELETE FROM provider_configs WHERE provider_name = ?`, providerName)
		if err != nil {
			return fmt.Errorf("failed to delete provider config: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, providerName)
		}
		return nil
	}, 3)
}

// ListProviderConfigs returns the stored providers with their key names and last update
func (s *SQLiteStorage) ListProviderConfigs() ([]StoredConfigInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []StoredConfigInfo
	err := s.retryOperation(func() error {
		rows, err := s.db.Query(`SELECT provider_name, config_data, updated_at FROM provider_configs ORDER BY provider_name`)
		if err != nil {
			return fmt.Errorf("failed to query provider configs: %w", err)
		}
		defer rows.Close()

		infos = infos[:0]
		for rows.Next() {
			var info StoredConfigInfo
			var configJSON string
			if err := rows.Scan(&info.Provider, &configJSON, &info.UpdatedAt); err != nil {
				return fmt.Errorf("failed to scan row: %w", err)
			}

			var config map[string]string
			if err := json.Unmarshal([]byte(configJSON), &config); err == nil {
				for k := range config {
					info.Keys = append(info.Keys, k)
				}
				sort.Strings(info.Keys)
			}
			infos = append(infos, info)
		}
		return rows.Err()
	}, 3)

	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStats returns the stored providers, their update times and the database size
func (s *SQLiteStorage) GetStats() (map[string]any, error) {
	infos, err := s.ListProviderConfigs()
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"total_configs": len(infos),
		"providers":     infos,
		"db_path":       s.path,
	}

	var lastUpdated time.Time
	for _, info := range infos {
		if info.UpdatedAt.After(lastUpdated) {
			lastUpdated = info.UpdatedAt
		}
	}
	if !lastUpdated.IsZero() {
		stats["last_updated"] = lastUpdated
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = fileInfo.Size()
	}
	return stats, nil
}
