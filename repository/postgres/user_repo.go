package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE
	SET username = EXCLUDED.username,
		email = EXCLUDED.email,
		password_hash = EXCLUDED.password_hash,
		role = EXCLUDED.role,
		updated_at = NOW()
	`

	record := user.ToRecord()
	if _, err := r.pool.Exec(ctx, query,
		record.ID,
		record.Username,
		record.Email,
		record.PasswordHash,
		string(record.Role),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		record domain.UserRecord
		role   string
	)
	if err := row.Scan(
		&record.ID,
		&record.Username,
		&record.Email,
		&record.PasswordHash,
		&role,
		&record.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	record.Role = domain.UserRole(role)
	return domain.UserFromRecord(record)
}
