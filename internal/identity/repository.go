package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/walletledger/internal/storage"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (User, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]User, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user and fills in its id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	row := storage.Conn(ctx, r.db).QueryRow(ctx, `INSERT INTO users (name, email, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW()) RETURNING id, created_at`, user.Name, user.Email)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return nil
}

// Get fetches a user by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (User, error) {
	row := storage.Conn(ctx, r.db).QueryRow(ctx, `SELECT id, name, email, created_at FROM users WHERE id = $1`, id)
	var user User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// GetMany fetches the users that exist among ids.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []int64) (map[int64]User, error) {
	users := make(map[int64]User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	rows, err := storage.Conn(ctx, r.db).Query(ctx, `SELECT id, name, email, created_at FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users[user.ID] = user
	}
	return users, rows.Err()
}

// Delete removes a user; the wallet row goes with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := storage.Conn(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
