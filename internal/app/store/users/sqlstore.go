// internal/app/store/users/sqlstore.go
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ipt-ti2/iptgram/internal/app/system/dbbackend"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
)

const userColumns = `id, user_name, normalized_user_name, email, normalized_email, name,
	password_hash, security_stamp, created_at, updated_at`

// SQLStore keeps users in a relational table. The same code serves
// SQL Server, MySQL and SQLite; Dialect absorbs the differences.
type SQLStore struct {
	db      *sql.DB
	dialect dbbackend.Dialect
}

// NewSQLStore creates a user store over an open pool for the given backend.
func NewSQLStore(db *sql.DB, kind dbbackend.Kind) *SQLStore {
	return &SQLStore{db: db, dialect: dbbackend.Dialect{Kind: kind}}
}

// EnsureSchema creates the users table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.CreateUsersTable()); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// Create inserts a new user after normalizing & validating fields.
// Returns ErrDuplicateUserName if the folded user name is already taken.
func (s *SQLStore) Create(ctx context.Context, u models.User) (models.User, error) {
	u, err := prepareNew(u)
	if err != nil {
		return models.User{}, err
	}

	if _, err := s.GetByUserName(ctx, u.UserName); err == nil {
		return models.User{}, ErrDuplicateUserName
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (` + s.dialect.Placeholders(10) + `)`
	_, err = s.db.ExecContext(ctx, query,
		u.ID, u.UserName, u.NormalizedUserName, u.Email, u.NormalizedEmail, u.Name,
		u.PasswordHash, u.SecurityStamp, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		// A concurrent insert may have won the unique index race.
		if _, lookupErr := s.GetByUserName(ctx, u.UserName); lookupErr == nil {
			return models.User{}, ErrDuplicateUserName
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetByID loads a user by id.
func (s *SQLStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ` + s.dialect.Placeholder(1)
	return s.queryOne(ctx, query, id)
}

// GetByUserName looks up a user by folded user name.
func (s *SQLStore) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE normalized_user_name = ` + s.dialect.Placeholder(1)
	return s.queryOne(ctx, query, NormalizeUserName(userName))
}

// UpdatePassword replaces the password hash and security stamp.
func (s *SQLStore) UpdatePassword(ctx context.Context, id, passwordHash, securityStamp string) error {
	query := fmt.Sprintf(`UPDATE users SET password_hash = %s, security_stamp = %s, updated_at = %s WHERE id = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4))
	res, err := s.db.ExecContext(ctx, query, passwordHash, securityStamp, time.Now().UTC().Truncate(time.Microsecond), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of users.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Ping verifies the pool can reach the database.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) queryOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.UserName, &u.NormalizedUserName, &u.Email, &u.NormalizedEmail, &u.Name,
		&u.PasswordHash, &u.SecurityStamp, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
