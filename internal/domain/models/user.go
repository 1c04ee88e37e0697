// internal/domain/models/user.go
package models

import (
	"time"
)

// User is an IPTGram account.
//
// NOTE:
//   - NormalizedUserName / NormalizedEmail are folded (lowercase, diacritics-stripped)
//     copies used for lookups; the display values keep the user's casing.
//   - PasswordHash never leaves the server; it is excluded from JSON.
type User struct {
	ID                 string `bson:"_id" json:"id"`
	UserName           string `bson:"user_name" json:"user_name"`
	NormalizedUserName string `bson:"normalized_user_name" json:"-"`
	Email              string `bson:"email" json:"email"`
	NormalizedEmail    string `bson:"normalized_email" json:"-"`
	Name               string `bson:"name" json:"name"`
	PasswordHash       string `bson:"password_hash" json:"-"`
	SecurityStamp      string `bson:"security_stamp" json:"-"` // rotated whenever credentials change

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
