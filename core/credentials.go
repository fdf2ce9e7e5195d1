package core

import "time"

// Credentials holds the API access data for one (user, exchange) pair.
// They are fetched fresh at the start of each strategy's processing and
// never cached across cycles.
type Credentials struct {
	ID         int64  `db:"id" json:"id" gorm:"primaryKey,autoIncrement"`
	UserID     int64  `db:"user_id" json:"user_id" gorm:"index:idx_credentials_user_exchange,unique"`
	Exchange   string `db:"exchange" json:"exchange" gorm:"index:idx_credentials_user_exchange,unique"`
	APIKey     string `db:"api_key" json:"api_key"`
	APISecret  string `db:"api_secret" json:"api_secret"`
	Passphrase string `db:"passphrase" json:"passphrase"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
