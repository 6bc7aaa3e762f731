package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultpay/vaultpay/internal/fault"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. A duplicate email surfaces as Conflict.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return fault.Newf(fault.InvalidArgument, "user id %q is not a valid uuid", user.ID)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, email, created_at)
        VALUES ($1, $2, $3)`, userID, user.Email, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fault.Newf(fault.Conflict, "email %s is already registered", user.Email)
		}
		return fault.Wrap(fault.Internal, "create user", err)
	}
	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, fault.Newf(fault.InvalidArgument, "user id %q is not a valid uuid", id)
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, userID)
	return scanUser(row, id)
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, email)
	return scanUser(row, email)
}

func scanUser(row pgx.Row, key string) (User, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Email, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fault.Newf(fault.NotFound, "user %s not found", key)
		}
		return User{}, fault.Wrap(fault.Internal, "scan user", err)
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
