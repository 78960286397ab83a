package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/studycoach/internal/platform/apierr"
	"github.com/mind-engage/studycoach/internal/rbac"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Users is the users table. Students log in with their student id as user id.
type Users struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsers(db *sql.DB) *Users { return &Users{db: db, now: time.Now} }

// Upsert creates or updates a user. An empty password keeps the stored hash.
func (u *Users) Upsert(ctx context.Context, id, username, role, password string) (User, error) {
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("unknown role %q", role)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, errors.New("username required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	hash := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hash = string(b)
	}
	return u.upsertHash(ctx, id, username, role, hash)
}

func (u *Users) upsertHash(ctx context.Context, id, username, role, hash string) (User, error) {
	now := u.now()
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO users (id, username, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
		  username = excluded.username,
		  role = excluded.role,
		  password_hash = CASE WHEN excluded.password_hash = '' THEN users.password_hash ELSE excluded.password_hash END`,
		id, username, role, hash, now.Unix())
	if err != nil {
		return User{}, fmt.Errorf("upsert user %s: %w", username, err)
	}
	return u.Get(ctx, id)
}

// EnsureAdmin creates the bootstrap admin with a precomputed bcrypt hash
// unless a user with that name already exists.
func (u *Users) EnsureAdmin(ctx context.Context, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	var id string
	err := u.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = u.upsertHash(ctx, "admin|"+username, username, rbac.RoleAdmin, passHash)
	return err
}

func (u *Users) Get(ctx context.Context, idOrUsername string) (User, error) {
	var (
		usr User
		ts  int64
	)
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, role, created_at FROM users WHERE id = $1 OR username = $1`,
		idOrUsername).Scan(&usr.ID, &usr.Username, &usr.Role, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	usr.CreatedAt = time.Unix(ts, 0).UTC()
	return usr, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		usr  User
		hash string
		ts   int64
	)
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, role, password_hash, created_at FROM users WHERE username = $1`,
		strings.TrimSpace(username)).Scan(&usr.ID, &usr.Username, &usr.Role, &hash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	usr.CreatedAt = time.Unix(ts, 0).UTC()
	return usr, nil
}

// AttachRoleFromDB replaces the token's role with the stored one so role
// changes apply before tokens expire. allowClaimFallback keeps the claim
// role for subjects missing from the table (dev only).
func AttachRoleFromDB(users *Users, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			usr, err := users.Get(ctx, rbac.SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, usr.Role)))
			case errors.Is(err, ErrUserNotFound) && allowClaimFallback:
				next.ServeHTTP(w, r)
			default:
				apierr.Write(w, apierr.Forbidden())
			}
		})
	}
}
