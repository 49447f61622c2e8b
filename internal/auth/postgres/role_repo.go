// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// RoleRepository implements auth.RoleRepository using PostgreSQL.
type RoleRepository struct {
	pool pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// Create stores a new role.
func (r *RoleRepository) Create(ctx context.Context, role *auth.Role) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name)
		VALUES ($1)
		RETURNING id
	`, role.Name).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ROLE_DUPLICATE").
				With("name", role.Name).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ROLE_CREATE_FAILED").
			With("operation", "insert role").
			With("name", role.Name).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a role by primary key.
func (r *RoleRepository) GetByID(ctx context.Context, id int16) (*auth.Role, error) {
	var role auth.Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name FROM roles WHERE id = $1
	`, id).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_BY_ID_FAILED").
			With("operation", "get role by id").
			With("id", id).
			Wrap(err)
	}
	return &role, nil
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*auth.Role, error) {
	var role auth.Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name FROM roles WHERE name = $1
	`, name).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_BY_NAME_FAILED").
			With("operation", "get role by name").
			With("name", name).
			Wrap(err)
	}
	return &role, nil
}

// List returns all roles ordered by id.
func (r *RoleRepository) List(ctx context.Context) ([]auth.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name FROM roles ORDER BY id
	`)
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").
			With("operation", "query roles").
			Wrap(err)
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, oops.Code("ROLE_LIST_FAILED").
				With("operation", "scan role row").
				Wrap(err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").
			With("operation", "iterate roles").
			Wrap(err)
	}

	return roles, nil
}

// Compile-time interface check.
var _ auth.RoleRepository = (*RoleRepository)(nil)
