package storage

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDeviceBundle saves a provisioned device with all of its ports,
// settings and MQTT record in one transaction.
func (p *PostgresClient) CreateDeviceBundle(ctx context.Context, b *types.DeviceBundle) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	d := b.Device
	_, err = tx.Exec(ctx, `
		INSERT INTO devices (id, project_id, device_type_id, name, description, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.ProjectID, d.DeviceTypeID, d.Name, d.Description, d.Image, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return pgErr("insert device", err)
	}

	for _, pb := range b.Ports {
		port := pb.Port
		_, err = tx.Exec(ctx, `
			INSERT INTO device_ports (id, device_id, port_name, port_type, description, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, port.ID, port.DeviceID, port.PortName, port.PortType.Code(), port.Description, port.Position,
			port.CreatedAt, port.UpdatedAt)
		if err != nil {
			return pgErr("insert device port", err)
		}

		if err := insertPortSetting(ctx, tx, &pb.Setting); err != nil {
			return err
		}
	}

	m := b.Mqtt
	_, err = tx.Exec(ctx, `
		INSERT INTO mqtt_configs (id, device_id, broker_address, port, username, password, client_id,
		                          keep_alive, clean_session, use_ssl, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, m.ID, m.DeviceID, m.BrokerAddress, m.Port, m.Username, m.Password, m.ClientID,
		m.KeepAlive, m.CleanSession, m.UseSSL, m.UpdatedAt)
	if err != nil {
		return pgErr("insert mqtt config", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const deviceColumns = `id, project_id, device_type_id, name, description, image, created_at, updated_at`

func scanDevice(row rowScanner) (*types.Device, error) {
	var d types.Device
	err := row.Scan(&d.ID, &d.ProjectID, &d.DeviceTypeID, &d.Name, &d.Description, &d.Image,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (p *PostgresClient) GetDevice(ctx context.Context, id uuid.UUID) (*types.Device, error) {
	d, err := scanDevice(p.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("get device", err)
	}
	return d, nil
}

func (p *PostgresClient) ListDevices(ctx context.Context, projectID uuid.UUID) ([]types.Device, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE project_id = $1
		ORDER BY created_at, id
	`, projectID)
	if err != nil {
		return nil, pgErr("list devices", err)
	}
	defer rows.Close()

	devices := make([]types.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, pgErr("list devices", rows.Err())
}

func (p *PostgresClient) UpdateDevice(ctx context.Context, d *types.Device) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE devices SET name = $2, description = $3, image = $4, updated_at = $5
		WHERE id = $1
	`, d.ID, d.Name, d.Description, d.Image, d.UpdatedAt)
	return expectRow("update device", tag, err)
}

func (p *PostgresClient) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	return expectRow("delete device", tag, err)
}

// ==================== PORTS ====================

const portColumns = `id, device_id, port_name, port_type, description, position, created_at, updated_at`

func scanDevicePort(row rowScanner) (*types.DevicePort, error) {
	var (
		port     types.DevicePort
		portType int
	)
	err := row.Scan(&port.ID, &port.DeviceID, &port.PortName, &portType, &port.Description, &port.Position,
		&port.CreatedAt, &port.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if port.PortType, err = enums.ParsePortType(portType); err != nil {
		return nil, fmt.Errorf("device port %s: %w", port.ID, err)
	}
	return &port, nil
}

func (p *PostgresClient) GetDevicePort(ctx context.Context, id uuid.UUID) (*types.DevicePort, error) {
	port, err := scanDevicePort(p.pool.QueryRow(ctx, `SELECT `+portColumns+` FROM device_ports WHERE id = $1`, id))
	if err != nil {
		return nil, pgErr("get device port", err)
	}
	return port, nil
}

func (p *PostgresClient) ListDevicePorts(ctx context.Context, deviceID uuid.UUID) ([]types.DevicePort, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+portColumns+` FROM device_ports
		WHERE device_id = $1
		ORDER BY position
	`, deviceID)
	if err != nil {
		return nil, pgErr("list device ports", err)
	}
	defer rows.Close()

	ports := make([]types.DevicePort, 0)
	for rows.Next() {
		port, err := scanDevicePort(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device port: %w", err)
		}
		ports = append(ports, *port)
	}
	return ports, pgErr("list device ports", rows.Err())
}

func (p *PostgresClient) UpdateDevicePort(ctx context.Context, port *types.DevicePort) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE device_ports SET port_name = $2, port_type = $3, description = $4, updated_at = $5
		WHERE id = $1
	`, port.ID, port.PortName, port.PortType.Code(), port.Description, port.UpdatedAt)
	return expectRow("update device port", tag, err)
}

func (p *PostgresClient) FindPortByIPAddress(ctx context.Context, deviceID uuid.UUID, ip netip.Addr, excludeID uuid.UUID) (*types.DevicePort, error) {
	port, err := scanDevicePort(p.pool.QueryRow(ctx, `
		SELECT dp.id, dp.device_id, dp.port_name, dp.port_type, dp.description, dp.position, dp.created_at, dp.updated_at
		FROM device_ports dp
		JOIN port_settings ps ON ps.device_port_id = dp.id
		WHERE dp.device_id = $1 AND ps.ip_address = $2 AND dp.id <> $3
		LIMIT 1
	`, deviceID, ip.String(), excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pgErr("find port by ip address", err)
	}
	return port, nil
}

// ==================== PORT SETTINGS ====================

// settingColumns maps a PortSetting onto the flat port_settings row.
type settingColumns struct {
	transport      enums.Transport
	ipAddress      *string
	subnetMask     *string
	defaultGateway *string
	baudRate       *int
	dataBits       *int
	stopBits       *int
	parity         *int
	flowControl    *int
}

func addrPtr(a netip.Addr) *string {
	s := ""
	if a.IsValid() {
		s = a.String()
	}
	return &s
}

func intPtr[T ~int](v T) *int {
	i := int(v)
	return &i
}

func flattenSetting(s *types.PortSetting) (settingColumns, error) {
	switch c := s.Config.(type) {
	case types.EthernetConfig:
		return settingColumns{
			transport:      enums.TransportEthernet,
			ipAddress:      addrPtr(c.IPAddress),
			subnetMask:     addrPtr(c.SubnetMask),
			defaultGateway: addrPtr(c.DefaultGateway),
		}, nil
	case types.SerialConfig:
		return settingColumns{
			transport:   enums.TransportSerial,
			baudRate:    intPtr(c.BaudRate),
			dataBits:    intPtr(c.DataBits),
			stopBits:    intPtr(c.StopBits),
			parity:      intPtr(c.Parity),
			flowControl: intPtr(c.FlowControl),
		}, nil
	}
	return settingColumns{}, fmt.Errorf("port setting %s has no config", s.ID)
}

func parseAddr(s *string) (netip.Addr, error) {
	if s == nil || *s == "" {
		return netip.Addr{}, nil
	}
	return netip.ParseAddr(*s)
}

func (c settingColumns) config() (types.PortConfig, error) {
	switch c.transport {
	case enums.TransportEthernet:
		var (
			cfg types.EthernetConfig
			err error
		)
		if cfg.IPAddress, err = parseAddr(c.ipAddress); err != nil {
			return nil, err
		}
		if cfg.SubnetMask, err = parseAddr(c.subnetMask); err != nil {
			return nil, err
		}
		if cfg.DefaultGateway, err = parseAddr(c.defaultGateway); err != nil {
			return nil, err
		}
		return cfg, nil
	case enums.TransportSerial:
		if c.baudRate == nil || c.dataBits == nil || c.stopBits == nil || c.parity == nil || c.flowControl == nil {
			return nil, fmt.Errorf("incomplete serial setting")
		}
		return types.SerialConfig{
			BaudRate:    enums.BaudRate(*c.baudRate),
			DataBits:    enums.DataBits(*c.dataBits),
			StopBits:    enums.StopBits(*c.stopBits),
			Parity:      enums.Parity(*c.parity),
			FlowControl: enums.FlowControl(*c.flowControl),
		}, nil
	}
	return nil, fmt.Errorf("unknown transport %d", c.transport)
}

func insertPortSetting(ctx context.Context, tx pgx.Tx, s *types.PortSetting) error {
	cols, err := flattenSetting(s)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO port_settings (id, device_port_id, device_id, transport, ip_address, subnet_mask, default_gateway,
		                           baud_rate, data_bits, stop_bits, parity, flow_control, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, s.ID, s.DevicePortID, s.DeviceID, int16(cols.transport), cols.ipAddress, cols.subnetMask, cols.defaultGateway,
		cols.baudRate, cols.dataBits, cols.stopBits, cols.parity, cols.flowControl, s.UpdatedAt)
	return pgErr("insert port setting", err)
}

func (p *PostgresClient) GetPortSetting(ctx context.Context, devicePortID uuid.UUID) (*types.PortSetting, error) {
	var (
		s         types.PortSetting
		cols      settingColumns
		transport int16
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, device_port_id, device_id, transport, ip_address, subnet_mask, default_gateway,
		       baud_rate, data_bits, stop_bits, parity, flow_control, updated_at
		FROM port_settings WHERE device_port_id = $1
	`, devicePortID).Scan(&s.ID, &s.DevicePortID, &s.DeviceID, &transport, &cols.ipAddress, &cols.subnetMask,
		&cols.defaultGateway, &cols.baudRate, &cols.dataBits, &cols.stopBits, &cols.parity, &cols.flowControl,
		&s.UpdatedAt)
	if err != nil {
		return nil, pgErr("get port setting", err)
	}
	cols.transport = enums.Transport(transport)
	if s.Config, err = cols.config(); err != nil {
		return nil, fmt.Errorf("port setting %s: %w", s.ID, err)
	}
	return &s, nil
}

func (p *PostgresClient) UpdatePortSetting(ctx context.Context, s *types.PortSetting) error {
	cols, err := flattenSetting(s)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE port_settings SET transport = $2, ip_address = $3, subnet_mask = $4, default_gateway = $5,
		       baud_rate = $6, data_bits = $7, stop_bits = $8, parity = $9, flow_control = $10, updated_at = $11
		WHERE device_port_id = $1
	`, s.DevicePortID, int16(cols.transport), cols.ipAddress, cols.subnetMask, cols.defaultGateway,
		cols.baudRate, cols.dataBits, cols.stopBits, cols.parity, cols.flowControl, s.UpdatedAt)
	return expectRow("update port setting", tag, err)
}

// ==================== MQTT ====================

func (p *PostgresClient) GetMqtt(ctx context.Context, deviceID uuid.UUID) (*types.Mqtt, error) {
	var m types.Mqtt
	err := p.pool.QueryRow(ctx, `
		SELECT id, device_id, broker_address, port, username, password, client_id,
		       keep_alive, clean_session, use_ssl, updated_at
		FROM mqtt_configs WHERE device_id = $1
	`, deviceID).Scan(&m.ID, &m.DeviceID, &m.BrokerAddress, &m.Port, &m.Username, &m.Password, &m.ClientID,
		&m.KeepAlive, &m.CleanSession, &m.UseSSL, &m.UpdatedAt)
	if err != nil {
		return nil, pgErr("get mqtt config", err)
	}
	return &m, nil
}

func (p *PostgresClient) UpdateMqtt(ctx context.Context, m *types.Mqtt) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE mqtt_configs SET broker_address = $2, port = $3, username = $4, password = $5, client_id = $6,
		       keep_alive = $7, clean_session = $8, use_ssl = $9, updated_at = $10
		WHERE device_id = $1
	`, m.DeviceID, m.BrokerAddress, m.Port, m.Username, m.Password, m.ClientID,
		m.KeepAlive, m.CleanSession, m.UseSSL, m.UpdatedAt)
	return expectRow("update mqtt config", tag, err)
}
