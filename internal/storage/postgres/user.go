package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/page"
)

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository implements auth.UserRepository and admin.Users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, role, display_name, created_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, role, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Email, u.Username, u.PasswordHash, u.Role, u.DisplayName,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err, "") {
		return auth.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// Upsert creates or updates an account by email. Used by seed-db.
func (r *UserRepository) Upsert(ctx context.Context, u *auth.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, role, display_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id, created_at`,
		u.Email, u.Username, u.PasswordHash, u.Role, u.DisplayName,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", u.Email, err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("updating password of user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

var userSort = sortSpec{
	columns: map[string]string{
		"id":        "id",
		"email":     "email",
		"username":  "username",
		"role":      "role",
		"createdAt": "created_at",
	},
	fallback: "created_at",
	tiebreak: "id",
}

// List returns a page of users. Password hashes are left empty.
func (r *UserRepository) List(ctx context.Context, req page.Request) ([]auth.User, int, error) {
	total, err := count(ctx, r.pool, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, email, username, '', role, display_name, created_at FROM users`+userSort.clause(req, 1),
		req.Limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (auth.User, error) {
		u, err := scanUser(row)
		if err != nil {
			return auth.User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning users: %w", err)
	}
	return users, total, nil
}
