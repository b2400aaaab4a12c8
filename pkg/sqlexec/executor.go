// Package sqlexec runs generated SELECT statements against the loan/EMI
// reporting database.
package sqlexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Row is one result record, column name to value.
type Row = map[string]interface{}

type Executor struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewExecutor(db *gorm.DB, timeout time.Duration) *Executor {
	return &Executor{
		db:      db,
		timeout: timeout,
	}
}

// Execute runs a generated statement. Only SELECT is allowed; the generator
// is trusted to classify everything else away, but the guard here is the
// hard stop.
func (e *Executor) Execute(ctx context.Context, query string) ([]Row, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select") {
		return nil, fmt.Errorf("only SELECT statements are executable, got: %.32q", query)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var rows []Row
	if err := e.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}
