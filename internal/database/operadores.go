package database

import (
	"context"
)

const getOperadorByEmail = `SELECT id, email, nombre, hashed_password, rol, is_active, created_at
FROM operadores WHERE email = $1 AND is_active = true`

func (q *Queries) GetOperadorByEmail(ctx context.Context, email string) (Operador, error) {
	var o Operador
	err := q.db.QueryRow(ctx, getOperadorByEmail, email).Scan(
		&o.ID, &o.Email, &o.Nombre, &o.HashedPassword, &o.Rol, &o.IsActive, &o.CreatedAt,
	)
	return o, err
}

type UpsertOperadorParams struct {
	Email          string
	Nombre         string
	HashedPassword string
	Rol            string
}

const upsertOperador = `INSERT INTO operadores (email, nombre, hashed_password, rol)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET nombre = EXCLUDED.nombre,
    hashed_password = EXCLUDED.hashed_password, rol = EXCLUDED.rol, is_active = true
RETURNING id, email, nombre, hashed_password, rol, is_active, created_at`

func (q *Queries) UpsertOperador(ctx context.Context, arg UpsertOperadorParams) (Operador, error) {
	var o Operador
	err := q.db.QueryRow(ctx, upsertOperador, arg.Email, arg.Nombre, arg.HashedPassword, arg.Rol).Scan(
		&o.ID, &o.Email, &o.Nombre, &o.HashedPassword, &o.Rol, &o.IsActive, &o.CreatedAt,
	)
	return o, err
}
