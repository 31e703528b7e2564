package audit

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store persists Events to Postgres via gorm. Schema is owned by the
// golang-migrate migrations under migrations/, not gorm's AutoMigrate:
// unlike the teacher's status_store.go, which calls AutoMigrate in its
// constructor, the audit trail's schema is versioned so a rollback tool
// exists once the table carries operator-relied-upon history.
type Store struct {
	db *gorm.DB
}

// Open connects to databaseURL and returns a Store. It does not run
// migrations; the caller is expected to run the migrations/ directory
// with golang-migrate at deploy time.
func Open(databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record inserts event. Callers treat failures as non-fatal to the
// request pipeline: the audit trail is a supplementary record, not a
// dependency of the send path.
func (s *Store) Record(ctx context.Context, event Event) error {
	return s.db.WithContext(ctx).Create(&event).Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
