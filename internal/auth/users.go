// Package auth handles user accounts, bearer tokens and the per-source
// permission checks gating context retrieval.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vibecoding/mcp-server/internal/db"
)

// PermissionAdmin grants access to every source.
const PermissionAdmin = "admin"

// User is an account that can request context.
type User struct {
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Permissions []string `json:"permissions"`
	Disabled    bool     `json:"disabled"`
}

// HasPermission reports whether the user may read the given source. Admins
// pass every check.
func (u *User) HasPermission(perm string) bool {
	for _, p := range u.Permissions {
		if p == PermissionAdmin || p == perm {
			return true
		}
	}
	return false
}

// Store reads and writes user accounts.
type Store struct {
	db *db.DB
}

// NewStore wraps the database and seeds the default accounts if the users
// table is empty.
func NewStore(database *db.DB) (*Store, error) {
	s := &Store{db: database}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// seed inserts the built-in accounts on first run. Both carry access to all
// four sources; admin additionally bypasses permission checks.
func (s *Store) seed() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		username, fullName, password string
		permissions                  []string
	}{
		{"admin", "Administrator", "admin", []string{PermissionAdmin, "gmail", "zoom", "notion", "salesforce"}},
		{"sales", "Sales User", "sales", []string{"gmail", "zoom", "notion", "salesforce"}},
	}
	for _, u := range defaults {
		if err := s.CreateUser(u.username, u.fullName, u.password, u.permissions); err != nil {
			return err
		}
	}
	return nil
}

// CreateUser inserts a new account with a hashed password.
func (s *Store) CreateUser(username, fullName, password string, permissions []string) error {
	perms, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO users (username, full_name, password, permissions) VALUES (?, ?, ?, ?)`,
		username, fullName, hashPassword(password), string(perms),
	)
	if err != nil {
		return fmt.Errorf("inserting user %s: %w", username, err)
	}
	return nil
}

// GetUser fetches an account, or nil when it does not exist.
func (s *Store) GetUser(username string) (*User, error) {
	var (
		u        User
		perms    string
		disabled int
	)
	err := s.db.QueryRow(
		`SELECT username, full_name, permissions, disabled FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.FullName, &perms, &disabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", username, err)
	}
	if err := json.Unmarshal([]byte(perms), &u.Permissions); err != nil {
		return nil, fmt.Errorf("decoding permissions for %s: %w", username, err)
	}
	u.Disabled = disabled != 0
	return &u, nil
}

// VerifyUser checks the password and returns the account. Unknown users,
// wrong passwords and disabled accounts all return nil without error so
// callers cannot distinguish them.
func (s *Store) VerifyUser(username, password string) (*User, error) {
	var stored string
	err := s.db.QueryRow(`SELECT password FROM users WHERE username = ?`, username).Scan(&stored)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching password for %s: %w", username, err)
	}

	supplied := hashPassword(password)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return nil, nil
	}

	u, err := s.GetUser(username)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Disabled {
		return nil, nil
	}
	return u, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
