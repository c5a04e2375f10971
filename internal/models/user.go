package models

import "time"

// User is a Telegram user of the bot
type User struct {
	ID            int64      `db:"id"`
	Username      *string    `db:"username"`
	FirstName     *string    `db:"first_name"`
	LastName      *string    `db:"last_name"`
	CreatedAt     time.Time  `db:"created_at"`
	IsAdmin       bool       `db:"is_admin"`
	DigestEnabled bool       `db:"digest_enabled"`
	LastDigest    *time.Time `db:"last_digest"`
}

// ListView is the persisted search/sort/page state of one list for one user.
// Params holds url-encoded query parameters.
type ListView struct {
	UserID    int64     `db:"user_id"`
	List      string    `db:"list"`
	Params    string    `db:"params"`
	UpdatedAt time.Time `db:"updated_at"`
}
