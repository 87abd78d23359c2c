// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// migrationFile is one SQL migration on disk
type migrationFile struct {
	Path    string
	Version string // numeric prefix, e.g. "003"
	Name    string
}

// RunMigrations applies every unapplied migration in dir, in version
// order, tracking them in schema_migrations.
func RunMigrations(db *sql.DB, dir string) error {
	migrations, err := collectMigrations(dir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		log.Printf("[MIGRATIONS] No migration files found in %s", dir)
		return nil
	}

	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	ran := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", filepath.Base(m.Path), err)
		}
		ran++
	}
	log.Printf("[MIGRATIONS] %d applied, %d already up to date", ran, len(migrations)-ran)
	return nil
}

func collectMigrations(dir string) ([]migrationFile, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var migrations []migrationFile
	for _, file := range files {
		filename := filepath.Base(file)
		version, name, ok := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
		if !ok {
			log.Printf("[MIGRATIONS] Skipping %s: missing NNN_name.sql prefix", filename)
			continue
		}
		migrations = append(migrations, migrationFile{Path: file, Version: version, Name: name})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			version VARCHAR(20) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			checksum VARCHAR(64),
			execution_time_ms INTEGER,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m migrationFile) error {
	content, err := os.ReadFile(m.Path)
	if err != nil {
		return err
	}

	started := time.Now()
	if _, err := db.Exec(string(content)); err != nil {
		return err
	}
	elapsed := time.Since(started)

	sum := sha256.Sum256(content)
	if _, err := db.Exec(`
		INSERT INTO schema_migrations (version, name, checksum, execution_time_ms)
		VALUES ($1, $2, $3, $4)
	`, m.Version, m.Name, hex.EncodeToString(sum[:]), elapsed.Milliseconds()); err != nil {
		return err
	}

	log.Printf("[MIGRATIONS] Applied %s_%s in %v", m.Version, m.Name, elapsed)
	return nil
}
