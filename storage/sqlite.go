// Copyright 2025 The attribeval Authors
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

package storage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/attribeval/attribeval"
)

// SQLite persists run results in a SQLite database via GORM. The driver is
// pure Go, so no cgo toolchain is needed.
type SQLite struct {
	db *gorm.DB
}

// runRecord is the database row for one run result.
type runRecord struct {
	RunID        string `gorm:"primaryKey;column:run_id"`
	MetricName   string `gorm:"index;column:metric_name"`
	Scores       scoreList
	Aggregate    jsonAny
	BatchSize    int
	NumInstances int
	CreatedAt    time.Time
}

func (runRecord) TableName() string { return "runs" }

// scoreList stores per-instance scores as a JSON column.
type scoreList []any

// Value implements driver.Valuer.
func (s scoreList) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *scoreList) Scan(value any) error {
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, s)
}

// jsonAny stores an arbitrary value (the aggregate) as a JSON column.
type jsonAny struct {
	V any
}

// Value implements driver.Valuer.
func (a jsonAny) Value() (driver.Value, error) {
	return json.Marshal(a.V)
}

// Scan implements sql.Scanner.
func (a *jsonAny) Scan(value any) error {
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, &a.V)
}

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("null"), nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("storage: cannot scan %T as JSON", value)
	}
}

// NewSQLite opens (or creates) the database at path and migrates the runs
// table. Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("storage: failed to migrate runs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// SaveRun implements Storage.
func (s *SQLite) SaveRun(ctx context.Context, run *attribeval.RunResult) error {
	if err := validate(run); err != nil {
		return err
	}

	record := runRecord{
		RunID:        run.ID,
		MetricName:   run.MetricName,
		Scores:       scoreList(run.Scores),
		Aggregate:    jsonAny{V: run.Aggregate},
		BatchSize:    run.BatchSize,
		NumInstances: run.NumInstances,
		CreatedAt:    run.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&record).Error
}

// GetRun implements Storage.
func (s *SQLite) GetRun(ctx context.Context, runID string) (*attribeval.RunResult, error) {
	var record runRecord
	err := s.db.WithContext(ctx).First(&record, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.toRunResult(), nil
}

// ListRuns implements Storage.
func (s *SQLite) ListRuns(ctx context.Context, metricName string) ([]attribeval.RunResult, error) {
	query := s.db.WithContext(ctx).Order("created_at")
	if metricName != "" {
		query = query.Where("metric_name = ?", metricName)
	}

	var records []runRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	runs := make([]attribeval.RunResult, 0, len(records))
	for _, record := range records {
		runs = append(runs, *record.toRunResult())
	}
	return runs, nil
}

// DeleteRun implements Storage.
func (s *SQLite) DeleteRun(ctx context.Context, runID string) error {
	result := s.db.WithContext(ctx).Delete(&runRecord{}, "run_id = ?", runID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *runRecord) toRunResult() *attribeval.RunResult {
	return &attribeval.RunResult{
		ID:           r.RunID,
		MetricName:   r.MetricName,
		Scores:       []any(r.Scores),
		Aggregate:    r.Aggregate.V,
		BatchSize:    r.BatchSize,
		NumInstances: r.NumInstances,
		CreatedAt:    r.CreatedAt,
	}
}
