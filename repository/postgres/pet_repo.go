package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

type petRepository struct {
	pool *pgxpool.Pool
}

// NewPetRepository returns a Postgres-backed implementation of PetRepository.
func NewPetRepository(pool *pgxpool.Pool) repository.PetRepository {
	return &petRepository{pool: pool}
}

const petColumns = `id, owner_id, name, type, health, hunger, stamina`

func (r *petRepository) FindByID(ctx context.Context, id string) (*domain.Pet, error) {
	const query = `SELECT ` + petColumns + ` FROM pets WHERE id = $1`
	return scanPet(r.pool.QueryRow(ctx, query, id))
}

func (r *petRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Pet, error) {
	const query = `SELECT ` + petColumns + ` FROM pets WHERE id = $1 AND owner_id = $2`
	return scanPet(r.pool.QueryRow(ctx, query, id, ownerID))
}

func (r *petRepository) List(ctx context.Context, filter repository.PetFilter) ([]*domain.Pet, error) {
	const query = `
	SELECT ` + petColumns + `
	FROM pets
	WHERE ($1 = '' OR owner_id = $1)
	ORDER BY created_at DESC, id
	LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.OwnerID, limitArg(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pets := make([]*domain.Pet, 0)
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		pets = append(pets, pet)
	}
	return pets, rows.Err()
}

func (r *petRepository) Create(ctx context.Context, pet *domain.Pet) error {
	if pet == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO pets (id, owner_id, name, type, health, hunger, stamina, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (id) DO NOTHING
	`

	p := pet.ToPrimitives()
	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.Name,
		string(p.Type),
		p.Health,
		p.Hunger,
		p.Stamina,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPetAlreadyExists
	}
	return nil
}

func (r *petRepository) Save(ctx context.Context, pet *domain.Pet) error {
	if pet == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO pets (id, owner_id, name, type, health, hunger, stamina, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		health = EXCLUDED.health,
		hunger = EXCLUDED.hunger,
		stamina = EXCLUDED.stamina,
		updated_at = NOW()
	`

	p := pet.ToPrimitives()
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.Name,
		string(p.Type),
		p.Health,
		p.Hunger,
		p.Stamina,
	)
	return err
}

func (r *petRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pets WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPetNotFound
	}
	return nil
}

func scanPet(row scanner) (*domain.Pet, error) {
	var (
		p       domain.PetPrimitives
		petType string
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&petType,
		&p.Health,
		&p.Hunger,
		&p.Stamina,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPetNotFound
		}
		return nil, err
	}
	p.Type = domain.PetType(petType)
	return domain.PetFromPrimitives(p)
}

type petUserRepository struct {
	pool *pgxpool.Pool
}

// NewPetUserRepository returns a Postgres-backed implementation of PetUserRepository.
func NewPetUserRepository(pool *pgxpool.Pool) repository.PetUserRepository {
	return &petUserRepository{pool: pool}
}

func (r *petUserRepository) FindByID(ctx context.Context, id string) (*domain.PetUser, error) {
	const query = `SELECT id, username FROM pet_users WHERE id = $1`
	var p domain.PetUserPrimitives
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPetUserNotFound
		}
		return nil, err
	}
	return domain.PetUserFromPrimitives(p)
}

func (r *petUserRepository) Save(ctx context.Context, user *domain.PetUser) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO pet_users (id, username, created_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
	`
	_, err := r.pool.Exec(ctx, query, user.ID(), user.Username())
	return err
}
