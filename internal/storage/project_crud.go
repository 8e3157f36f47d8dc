package storage

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

// ==================== PROJECTS ====================

func (p *PostgresClient) CreateProject(ctx context.Context, proj *types.Project) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, proj.ID, proj.Name, proj.Description, proj.CreatedAt, proj.UpdatedAt)
	return pgErr("insert project", err)
}

func (p *PostgresClient) GetProject(ctx context.Context, id uuid.UUID) (*types.Project, error) {
	var proj types.Project
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(&proj.ID, &proj.Name, &proj.Description, &proj.CreatedAt, &proj.UpdatedAt)
	if err != nil {
		return nil, pgErr("get project", err)
	}
	return &proj, nil
}

func (p *PostgresClient) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, pgErr("list projects", err)
	}
	defer rows.Close()

	projects := make([]types.Project, 0)
	for rows.Next() {
		var proj types.Project
		if err := rows.Scan(&proj.ID, &proj.Name, &proj.Description, &proj.CreatedAt, &proj.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, proj)
	}
	return projects, pgErr("list projects", rows.Err())
}

func (p *PostgresClient) UpdateProject(ctx context.Context, proj *types.Project) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, proj.ID, proj.Name, proj.Description, proj.UpdatedAt)
	return expectRow("update project", tag, err)
}

func (p *PostgresClient) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return expectRow("delete project", tag, err)
}

// ==================== DEVICE TYPES ====================

// UpsertDeviceType replaces the port template wholesale. Devices keep their
// own copies of the ports, so existing devices are unaffected.
func (p *PostgresClient) UpsertDeviceType(ctx context.Context, dt *types.DeviceType) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO device_types (id, name, model, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`, dt.ID, dt.Name, dt.Model, dt.Description, dt.CreatedAt, dt.UpdatedAt)
	if err != nil {
		return pgErr("upsert device type", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM device_port_infos WHERE device_type_id = $1`, dt.ID); err != nil {
		return pgErr("clear device type ports", err)
	}

	for _, info := range dt.Ports {
		_, err = tx.Exec(ctx, `
			INSERT INTO device_port_infos (id, device_type_id, port_name, port_type, description, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, info.ID, dt.ID, info.PortName, info.PortType.Code(), info.Description, info.Position)
		if err != nil {
			return pgErr("insert device type port", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresClient) GetDeviceType(ctx context.Context, id uuid.UUID) (*types.DeviceType, error) {
	var dt types.DeviceType
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, model, description, created_at, updated_at
		FROM device_types WHERE id = $1
	`, id).Scan(&dt.ID, &dt.Name, &dt.Model, &dt.Description, &dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		return nil, pgErr("get device type", err)
	}

	if dt.Ports, err = p.listPortInfos(ctx, dt.ID); err != nil {
		return nil, err
	}
	return &dt, nil
}

func (p *PostgresClient) ListDeviceTypes(ctx context.Context) ([]types.DeviceType, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, model, description, created_at, updated_at
		FROM device_types
		ORDER BY model
	`)
	if err != nil {
		return nil, pgErr("list device types", err)
	}

	deviceTypes := make([]types.DeviceType, 0)
	for rows.Next() {
		var dt types.DeviceType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Model, &dt.Description, &dt.CreatedAt, &dt.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan device type: %w", err)
		}
		deviceTypes = append(deviceTypes, dt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, pgErr("list device types", err)
	}

	for i := range deviceTypes {
		if deviceTypes[i].Ports, err = p.listPortInfos(ctx, deviceTypes[i].ID); err != nil {
			return nil, err
		}
	}
	return deviceTypes, nil
}

func (p *PostgresClient) listPortInfos(ctx context.Context, deviceTypeID uuid.UUID) ([]types.DevicePortInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, device_type_id, port_name, port_type, description, position
		FROM device_port_infos
		WHERE device_type_id = $1
		ORDER BY position
	`, deviceTypeID)
	if err != nil {
		return nil, pgErr("list device type ports", err)
	}
	defer rows.Close()

	infos := make([]types.DevicePortInfo, 0)
	for rows.Next() {
		var (
			info     types.DevicePortInfo
			portType int
		)
		if err := rows.Scan(&info.ID, &info.DeviceTypeID, &info.PortName, &portType, &info.Description, &info.Position); err != nil {
			return nil, fmt.Errorf("failed to scan device type port: %w", err)
		}
		if info.PortType, err = enums.ParsePortType(portType); err != nil {
			return nil, fmt.Errorf("device type port %s: %w", info.ID, err)
		}
		infos = append(infos, info)
	}
	return infos, pgErr("list device type ports", rows.Err())
}
