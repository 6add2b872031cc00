package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// UserRepository is the SQL gateway for users, roles and permissions.
type UserRepository struct{}

// NewUserRepository creates a UserRepository.
func NewUserRepository() *UserRepository { return &UserRepository{} }

const userColumns = `u.id, u.email, u.name, u.password_hash, r.code,
	r.role_level, u.department_id, u.org_id, u.is_active,
	u.can_approve_timesheet, u.last_login_at, u.created_at`

// GetByEmail fetches a user with their primary role joined in.
func (r *UserRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*domain.User, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users u
		JOIN roles r ON r.id = u.role_id WHERE u.email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr("user.get_by_email", "user", email, err)
	}
	return u, nil
}

// GetByID fetches a user with their primary role joined in.
func (r *UserRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.User, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users u
		JOIN roles r ON r.id = u.role_id WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr("user.get", "user", id, err)
	}
	return u, nil
}

// Create inserts a user. roleCode must name an existing role; when empty
// the default "user" role (level 5) is assigned.
func (r *UserRepository) Create(ctx context.Context, q database.Querier, u *domain.User, roleCode string) error {
	if roleCode == "" {
		roleCode = "user"
	}
	role, err := r.GetRoleByCode(ctx, q, roleCode)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return domain.ErrValidation("role", "unknown role code "+roleCode)
		}
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.RoleCode = role.Code
	u.RoleLevel = role.RoleLevel
	u.CreatedAt = time.Now().UTC()
	_, err = q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role_id,
			department_id, org_id, is_active, can_approve_timesheet, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Email, u.Name, u.PasswordHash, role.ID,
		nullStr(u.DepartmentID), nullStr(u.OrgID), u.IsActive,
		u.CanApproveTS, u.CreatedAt)
	if err != nil {
		return translate("user.create", err)
	}
	return nil
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, q database.Querier, id string, at time.Time) error {
	_, err := q.ExecContext(ctx, `UPDATE users SET last_login_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return translate("user.update_last_login", err)
	}
	return nil
}

// GetRoleByCode fetches a role by its code.
func (r *UserRepository) GetRoleByCode(ctx context.Context, q database.Querier, code string) (*domain.Role, error) {
	role := &domain.Role{}
	err := q.QueryRowContext(ctx, `
		SELECT id, code, name, role_level FROM roles WHERE code=$1`, code).
		Scan(&role.ID, &role.Code, &role.Name, &role.RoleLevel)
	if err != nil {
		return nil, notFoundOr("role.get", "role", code, err)
	}
	return role, nil
}

// ListPermissionCodes resolves every permission code granted to the user
// through the primary role and any secondary role assignments.
func (r *UserRepository) ListPermissionCodes(ctx context.Context, q database.Querier, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id IN (
			SELECT role_id FROM users WHERE id = $1
			UNION
			SELECT role_id FROM user_roles WHERE user_id = $1
		)
		ORDER BY p.code`, userID)
	if err != nil {
		return nil, translate("user.permissions", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, translate("user.permissions.scan", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	var department, org stringOrNull
	var lastLogin nullTimeCol
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.RoleCode,
		&u.RoleLevel, &department, &org, &u.IsActive, &u.CanApproveTS,
		&lastLogin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.DepartmentID = department.String
	u.OrgID = org.String
	u.LastLoginAt = lastLogin.Ptr()
	return u, nil
}

// ClientRepository is the SQL gateway for rental clients.
type ClientRepository struct{}

// NewClientRepository creates a ClientRepository.
func NewClientRepository() *ClientRepository { return &ClientRepository{} }

// Client is a rental counterparty.
type Client struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// GetByID fetches one client.
func (r *ClientRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Client, error) {
	c := &Client{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, is_active FROM clients WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("client", id)
	}
	if err != nil {
		return nil, translate("client.get", err)
	}
	return c, nil
}
