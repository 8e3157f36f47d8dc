package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ==================== PROTOCOLS ====================

const protocolColumns = `id, device_port_id, protocol_type, tcp_port, created_at, updated_at`

func scanProtocol(row rowScanner) (*types.Protocol, error) {
	var (
		proto types.Protocol
		code  int
	)
	if err := row.Scan(&proto.ID, &proto.DevicePortID, &code, &proto.TCPPort, &proto.CreatedAt, &proto.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if proto.Type, err = enums.ParseProtocolType(code); err != nil {
		return nil, fmt.Errorf("protocol %s: %w", proto.ID, err)
	}
	return &proto, nil
}

func (p *PostgresClient) CreateProtocol(ctx context.Context, proto *types.Protocol) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO protocols (`+protocolColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, proto.ID, proto.DevicePortID, proto.Type.Code(), proto.TCPPort, proto.CreatedAt, proto.UpdatedAt)
	return pgErr("insert protocol", err)
}

func (p *PostgresClient) GetProtocol(ctx context.Context, id uuid.UUID) (*types.Protocol, error) {
	proto, err := scanProtocol(p.pool.QueryRow(ctx, `SELECT `+protocolColumns+` FROM protocols WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("get protocol", err)
	}
	return proto, nil
}

func (p *PostgresClient) ListProtocols(ctx context.Context, devicePortID uuid.UUID) ([]types.Protocol, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+protocolColumns+` FROM protocols
		WHERE device_port_id = $1
		ORDER BY created_at, id
	`, devicePortID)
	if err != nil {
		return nil, pgErr("list protocols", err)
	}
	defer rows.Close()

	protocols := make([]types.Protocol, 0)
	for rows.Next() {
		proto, err := scanProtocol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protocol: %w", err)
		}
		protocols = append(protocols, *proto)
	}
	return protocols, pgErr("list protocols", rows.Err())
}

func (p *PostgresClient) UpdateProtocol(ctx context.Context, proto *types.Protocol) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE protocols SET protocol_type = $2, tcp_port = $3, updated_at = $4
		WHERE id = $1
	`, proto.ID, proto.Type.Code(), proto.TCPPort, proto.UpdatedAt)
	return expectRow("update protocol", tag, err)
}

func (p *PostgresClient) DeleteProtocol(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM protocols WHERE id = $1`, id)
	return expectRow("delete protocol", tag, err)
}

func (p *PostgresClient) FindProtocolByTCPPort(ctx context.Context, devicePortID uuid.UUID, tcpPort int, excludeID uuid.UUID) (*types.Protocol, error) {
	proto, err := scanProtocol(p.pool.QueryRow(ctx, `
		SELECT `+protocolColumns+` FROM protocols
		WHERE device_port_id = $1 AND tcp_port = $2 AND id <> $3
		LIMIT 1
	`, devicePortID, tcpPort, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pgErr("find protocol by tcp port", err)
	}
	return proto, nil
}

// ==================== SLAVE DEVICES ====================

const slaveColumns = `id, protocol_id, name, description, plc_model, scan_rate, device_address, created_at, updated_at`

func scanSlave(row rowScanner) (*types.SlaveDevice, error) {
	var (
		s     types.SlaveDevice
		model int
	)
	err := row.Scan(&s.ID, &s.ProtocolID, &s.Name, &s.Description, &model, &s.ScanRate, &s.DeviceAddress,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.PlcModel, err = enums.ParsePlcModel(model); err != nil {
		return nil, fmt.Errorf("slave device %s: %w", s.ID, err)
	}
	return &s, nil
}

func (p *PostgresClient) CreateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO slave_devices (`+slaveColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.ProtocolID, s.Name, s.Description, s.PlcModel.Code(), s.ScanRate, s.DeviceAddress,
		s.CreatedAt, s.UpdatedAt)
	return pgErr("insert slave device", err)
}

func (p *PostgresClient) GetSlaveDevice(ctx context.Context, id uuid.UUID) (*types.SlaveDevice, error) {
	s, err := scanSlave(p.pool.QueryRow(ctx, `SELECT `+slaveColumns+` FROM slave_devices WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("get slave device", err)
	}
	return s, nil
}

func (p *PostgresClient) ListSlaveDevices(ctx context.Context, protocolID uuid.UUID) ([]types.SlaveDevice, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+slaveColumns+` FROM slave_devices
		WHERE protocol_id = $1
		ORDER BY created_at, id
	`, protocolID)
	if err != nil {
		return nil, pgErr("list slave devices", err)
	}
	defer rows.Close()

	slaves := make([]types.SlaveDevice, 0)
	for rows.Next() {
		s, err := scanSlave(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slave device: %w", err)
		}
		slaves = append(slaves, *s)
	}
	return slaves, pgErr("list slave devices", rows.Err())
}

func (p *PostgresClient) UpdateSlaveDevice(ctx context.Context, s *types.SlaveDevice) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE slave_devices SET name = $2, description = $3, plc_model = $4, scan_rate = $5,
		       device_address = $6, updated_at = $7
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.PlcModel.Code(), s.ScanRate, s.DeviceAddress, s.UpdatedAt)
	return expectRow("update slave device", tag, err)
}

func (p *PostgresClient) DeleteSlaveDevice(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM slave_devices WHERE id = $1`, id)
	return expectRow("delete slave device", tag, err)
}

func (p *PostgresClient) FindSlaveByAddress(ctx context.Context, deviceID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error) {
	s, err := scanSlave(p.pool.QueryRow(ctx, `
		SELECT sd.id, sd.protocol_id, sd.name, sd.description, sd.plc_model, sd.scan_rate, sd.device_address,
		       sd.created_at, sd.updated_at
		FROM slave_devices sd
		JOIN protocols pr ON pr.id = sd.protocol_id
		JOIN device_ports dp ON dp.id = pr.device_port_id
		WHERE dp.device_id = $1 AND sd.device_address = $2 AND sd.id <> $3
		ORDER BY sd.created_at, sd.id
		LIMIT 1
	`, deviceID, address, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pgErr("find slave by address", err)
	}
	return s, nil
}

func (p *PostgresClient) FindSlaveInProtocol(ctx context.Context, protocolID uuid.UUID, address string, excludeID uuid.UUID) (*types.SlaveDevice, error) {
	s, err := scanSlave(p.pool.QueryRow(ctx, `
		SELECT `+slaveColumns+` FROM slave_devices
		WHERE protocol_id = $1 AND device_address = $2 AND id <> $3
		LIMIT 1
	`, protocolID, address, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pgErr("find slave in protocol", err)
	}
	return s, nil
}

// ==================== IOS ====================

const ioColumns = `id, slave_device_id, name, description, register_code, start_address, length, conversion, created_at, updated_at`

func scanIO(row rowScanner) (*types.IO, error) {
	var (
		io         types.IO
		register   int
		conversion int
	)
	err := row.Scan(&io.ID, &io.SlaveDeviceID, &io.Name, &io.Description, &register, &io.StartAddress, &io.Length,
		&conversion, &io.CreatedAt, &io.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if io.Register, err = enums.ParsePlcRegister(register); err != nil {
		return nil, fmt.Errorf("io %s: %w", io.ID, err)
	}
	if io.Conversion, err = enums.ParseConversion(conversion); err != nil {
		return nil, fmt.Errorf("io %s: %w", io.ID, err)
	}
	return &io, nil
}

func (p *PostgresClient) CreateIO(ctx context.Context, io *types.IO) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ios (`+ioColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, io.ID, io.SlaveDeviceID, io.Name, io.Description, io.Register.Code(), io.StartAddress, io.Length,
		int(io.Conversion), io.CreatedAt, io.UpdatedAt)
	return pgErr("insert io", err)
}

func (p *PostgresClient) GetIO(ctx context.Context, id uuid.UUID) (*types.IO, error) {
	io, err := scanIO(p.pool.QueryRow(ctx, `SELECT `+ioColumns+` FROM ios WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("get io", err)
	}
	return io, nil
}

func (p *PostgresClient) ListIOs(ctx context.Context, slaveDeviceID uuid.UUID) ([]types.IO, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+ioColumns+` FROM ios
		WHERE slave_device_id = $1
		ORDER BY created_at, id
	`, slaveDeviceID)
	if err != nil {
		return nil, pgErr("list ios", err)
	}
	defer rows.Close()

	ios := make([]types.IO, 0)
	for rows.Next() {
		io, err := scanIO(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan io: %w", err)
		}
		ios = append(ios, *io)
	}
	return ios, pgErr("list ios", rows.Err())
}

func (p *PostgresClient) UpdateIO(ctx context.Context, io *types.IO) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE ios SET name = $2, description = $3, register_code = $4, start_address = $5, length = $6,
		       conversion = $7, updated_at = $8
		WHERE id = $1
	`, io.ID, io.Name, io.Description, io.Register.Code(), io.StartAddress, io.Length, int(io.Conversion), io.UpdatedAt)
	return expectRow("update io", tag, err)
}

func (p *PostgresClient) DeleteIO(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM ios WHERE id = $1`, id)
	return expectRow("delete io", tag, err)
}
