// Package recorder persists an audit trail of placed orders. It records
// what went out to the exchanges; it never persists cache or session state.
package recorder

import (
	"context"
	"time"

	"main/pkg/conn"
	"main/pkg/exception"

	"github.com/yanun0323/errors"
)

// OrderRecord is one audited order submission.
type OrderRecord struct {
	ID          uint64 `gorm:"primaryKey"`
	Exchange    string `gorm:"index"`
	Symbol      string `gorm:"index"`
	Side        string
	OrderType   string
	OrderID     string
	OrderLinkID string
	Price       string
	Qty         string
	CreatedAt   time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (OrderRecord) TableName() string {
	return "order_records"
}

// Store writes order records through the shared PostgreSQL pool.
type Store struct {
	client *conn.Client
}

// New creates a store and migrates its table.
func New(client *conn.Client) (*Store, error) {
	if client == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "recorder store")
	}

	if err := client.DB().AutoMigrate(&OrderRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate order records")
	}

	return &Store{client: client}, nil
}

// Record appends one order submission.
func (s *Store) Record(ctx context.Context, rec OrderRecord) error {
	if err := s.client.DB().WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrap(err, "insert order record")
	}
	return nil
}

// Recent returns the latest limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var recs []OrderRecord
	if err := s.client.DB().WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "query order records")
	}
	return recs, nil
}
