package repositories

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	user_id           TEXT PRIMARY KEY,
	access_token      TEXT NOT NULL,
	refresh_token_enc TEXT NOT NULL,
	scope             TEXT NOT NULL DEFAULT '',
	expires_at        TIMESTAMP NOT NULL,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);
`

// Migrate creates the credentials schema if it does not exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
