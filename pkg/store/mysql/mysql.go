package mysqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/lzyats/cloud-message-go/pkg/cloudmsg"
	"github.com/lzyats/cloud-message-go/pkg/registry"
)

// Store backs the device registry with a cm_device table:
//
//	CREATE TABLE cm_device (
//	  registration_id VARCHAR(255) NOT NULL,
//	  cloud_type      VARCHAR(8)   NOT NULL,
//	  active          TINYINT(1)   NOT NULL DEFAULT 1,
//	  PRIMARY KEY (registration_id, cloud_type)
//	);
type Store struct {
	db *sql.DB
}

func New(cfg cloudmsg.MySQLSettings) (*Store, error) {
	if cfg.DSN == "" {
		return nil, cloudmsg.ErrNotConfigured
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 50
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 25
	}
	if cfg.ConnMaxLife == 0 {
		cfg.ConnMaxLife = 30 * time.Minute
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 2 * time.Second
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLife)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, for callers that manage pooling
// themselves.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts a device record; used by the registering side, never by the
// dispatch core.
func (s *Store) Save(ctx context.Context, d registry.Device) error {
	if d.RegistrationID == "" {
		return cloudmsg.ErrInvalidArgument
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cm_device (registration_id, cloud_type, active)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE active = VALUES(active)
`, d.RegistrationID, string(d.CloudType), d.Active)
	return err
}

func (s *Store) Find(ctx context.Context, ct cloudmsg.CloudType, id string) (*registry.Device, error) {
	var d registry.Device
	var cloud string
	err := s.db.QueryRowContext(ctx, `
SELECT registration_id, cloud_type, active
FROM cm_device
WHERE registration_id = ? AND cloud_type = ?
`, id, string(ct)).Scan(&d.RegistrationID, &cloud, &d.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.CloudType = cloudmsg.CloudType(cloud)
	return &d, nil
}

func (s *Store) FilterByIDs(ctx context.Context, ct cloudmsg.CloudType, ids []string) ([]registry.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(ct))

	rows, err := s.db.QueryContext(ctx, `
SELECT registration_id, cloud_type, active
FROM cm_device
WHERE registration_id IN (`+placeholders+`) AND cloud_type = ?
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]registry.Device, 0, len(ids))
	for rows.Next() {
		var d registry.Device
		var cloud string
		if err := rows.Scan(&d.RegistrationID, &cloud, &d.Active); err != nil {
			return nil, err
		}
		d.CloudType = cloudmsg.CloudType(cloud)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Deactivate(ctx context.Context, ct cloudmsg.CloudType, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(ct))

	_, err := s.db.ExecContext(ctx, `
UPDATE cm_device SET active = 0
WHERE registration_id IN (`+placeholders+`) AND cloud_type = ?
`, args...)
	return err
}

// Rename runs in a transaction: a row may already exist under newID (the
// caller renames over inactive records), and the primary key would reject
// the UPDATE. The stale newID row is dropped first.
func (s *Store) Rename(ctx context.Context, ct cloudmsg.CloudType, oldID, newID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
DELETE FROM cm_device
WHERE registration_id = ? AND cloud_type = ?
`, newID, string(ct)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE cm_device SET registration_id = ?
WHERE registration_id = ? AND cloud_type = ?
`, newID, oldID, string(ct)); err != nil {
		return err
	}
	return tx.Commit()
}
