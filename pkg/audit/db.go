package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"
)

// DBRecorder keeps a local retention copy of account activity in PostgreSQL
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates a database-backed recorder and ensures its table
func NewDBRecorder(db *sql.DB) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	r := &DBRecorder{db: db}
	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("ensure account_activity table: %w", err)
	}
	return r, nil
}

// ensureTable creates the account_activity table if it doesn't exist
func (r *DBRecorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS account_activity (
		id UUID PRIMARY KEY,
		action VARCHAR(50) NOT NULL,
		admin_id VARCHAR(100) NOT NULL,
		email VARCHAR(255),
		role VARCHAR(50),
		resource TEXT,
		ip_address VARCHAR(45),
		user_agent TEXT,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_account_activity_admin_id ON account_activity(admin_id);
	CREATE INDEX IF NOT EXISTS idx_account_activity_timestamp ON account_activity(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_account_activity_action ON account_activity(action);
	`
	_, err := r.db.Exec(query)
	return err
}

// Record inserts one event
func (r *DBRecorder) Record(ctx context.Context, event *Event) error {
	event.normalize()

	query := `
		INSERT INTO account_activity (id, action, admin_id, email, role, resource, ip_address, user_agent, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.AdminID,
		event.Email,
		event.Role,
		event.Resource,
		event.IPAddress,
		event.UserAgent,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert account activity: %w", err)
	}
	return nil
}

// Cleanup removes retained events older than the retention window and
// returns the number deleted
func (r *DBRecorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result, err := r.db.ExecContext(ctx, `DELETE FROM account_activity WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup account activity: %w", err)
	}
	return result.RowsAffected()
}
