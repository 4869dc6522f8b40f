// Package postgres implements the storage contracts on PostgreSQL via
// database/sql. Expected schema:
//
//	conversations(id, participant_lo, participant_hi, listing_id,
//	              last_message_id, last_activity, created_at)
//	  with a unique index on (participant_lo, participant_hi, listing_id);
//	  participants are stored sorted so pair lookup is order-independent.
//	messages(id, conversation_id, sender_id, content, created_at,
//	         is_read, read_at)
//	users(id, name, mobile, profile_picture, verified)
//	listings(id, title, price, status, seller_id)
//
// The users and listings tables are written by the excluded CRUD subsystem;
// this package only reads them.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Open connects to the database and verifies the connection.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// sortPair returns the participant pair in lexical order, matching how the
// conversations table stores it.
func sortPair(userA, userB string) (string, string) {
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}
