// Copyright 2025 Agora Labs
//
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

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var memDbCounter atomic.Uint64

// Database provides persistent storage for the participation economy core.
// Mutable state (stake positions, proposals, votes) lives in a relational
// metadata store; the immutable reward-period history lives in an
// append-only blob store.
type Database struct {
	logger   *slog.Logger
	dataDir  string
	metadata *gorm.DB
	blob     *badger.DB
}

// New creates a Database. Both stores are kept in memory if dataDir is
// empty, which is useful for testing and embedded use.
func New(
	dataDir string,
	logger *slog.Logger,
) (*Database, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var metadataDb *gorm.DB
	var blobDb *badger.DB
	var err error
	if dataDir == "" {
		// Named memory database with cache=shared lets the connection pool
		// share one in-memory store without colliding with other instances
		// in the same process
		dsn := fmt.Sprintf(
			"file:memdb%d?mode=memory&cache=shared",
			memDbCounter.Add(1),
		)
		metadataDb, err = gorm.Open(
			sqlite.Open(dsn),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
		blobDb, err = badger.Open(
			badger.DefaultOptions("").
				WithInMemory(true).
				WithLogger(nil),
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
		blobDb, err = badger.Open(
			badger.DefaultOptions(filepath.Join(dataDir, "history")).
				WithLogger(nil),
		)
		if err != nil {
			return nil, err
		}
	}
	db := &Database{
		logger:   logger,
		dataDir:  dataDir,
		metadata: metadataDb,
		blob:     blobDb,
	}
	// Create table schemas
	for _, model := range MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.metadata.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Metadata returns the underlying relational store handle
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// Close shuts down both stores
func (d *Database) Close() error {
	var retErr error
	if d.metadata != nil {
		if sqlDb, err := d.metadata.DB(); err == nil {
			if err := sqlDb.Close(); err != nil {
				retErr = err
			}
		}
	}
	if d.blob != nil {
		if err := d.blob.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}
