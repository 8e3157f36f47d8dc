package topology

import (
	"context"
	"fmt"

	"github.com/KevinKickass/OpenMachineConfig/internal/devices"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateSource yields the device type templates to synchronise.
type TemplateSource interface {
	LoadAll() ([]types.DeviceTypeDefinition, error)
}

// SyncDeviceTypes upserts every template from src. Existing devices keep the
// ports they were provisioned with.
func (s *Service) SyncDeviceTypes(ctx context.Context, src TemplateSource) (int, error) {
	defs, err := src.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load device type templates: %w", err)
	}

	now := s.now()
	for _, def := range defs {
		dt, err := devices.NewDeviceType(def, now)
		if err != nil {
			return 0, err
		}
		if err := s.store.UpsertDeviceType(ctx, dt); err != nil {
			return 0, s.storeErr("upsert device type", err)
		}
		s.logger.Info("Device type synchronised",
			zap.String("model", dt.Model),
			zap.Int("ports", len(dt.Ports)))
	}
	return len(defs), nil
}

func (s *Service) GetDeviceType(ctx context.Context, id uuid.UUID) (*types.DeviceType, error) {
	dt, err := s.store.GetDeviceType(ctx, id)
	return dt, s.storeErr("get device type", err)
}

func (s *Service) ListDeviceTypes(ctx context.Context) ([]types.DeviceType, error) {
	dts, err := s.store.ListDeviceTypes(ctx)
	return dts, s.storeErr("list device types", err)
}

type DeviceInput struct {
	DeviceTypeID uuid.UUID `json:"device_type_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
}

type DevicePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// ProvisionDevice creates a device with its ports, settings and MQTT record
// from the device type template, as one atomic write.
func (s *Service) ProvisionDevice(ctx context.Context, projectID uuid.UUID, in DeviceInput) (*types.DeviceBundle, error) {
	if projectID == uuid.Nil || in.DeviceTypeID == uuid.Nil {
		return nil, paramsMissing("device_type_id")
	}
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}

	dt, err := s.store.GetDeviceType(ctx, in.DeviceTypeID)
	if err != nil {
		return nil, s.storeErr("get device type", err)
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, s.storeErr("get project", err)
	}

	bundle, err := s.composer.Compose(dt, devices.DeviceSpec{
		ProjectID:   projectID,
		Name:        name,
		Description: in.Description,
		Image:       in.Image,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateDeviceBundle(ctx, bundle); err != nil {
		return nil, s.storeErr("create device", err)
	}

	s.logger.Info("Device provisioned",
		zap.String("device_id", bundle.Device.ID.String()),
		zap.String("device_type", dt.Model),
		zap.Int("ports", len(bundle.Ports)))
	s.publish(types.EntityDevice, types.ChangeCreated, bundle.Device.ID, projectID)
	return bundle, nil
}

func (s *Service) GetDevice(ctx context.Context, id uuid.UUID) (*types.Device, error) {
	d, err := s.store.GetDevice(ctx, id)
	return d, s.storeErr("get device", err)
}

func (s *Service) ListDevices(ctx context.Context, projectID uuid.UUID) ([]types.Device, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, s.storeErr("get project", err)
	}
	ds, err := s.store.ListDevices(ctx, projectID)
	return ds, s.storeErr("list devices", err)
}

func (s *Service) UpdateDevice(ctx context.Context, id uuid.UUID, patch DevicePatch) (*types.Device, error) {
	d, err := s.store.GetDevice(ctx, id)
	if err != nil {
		return nil, s.storeErr("get device", err)
	}

	if patch.Name != nil {
		if d.Name, err = cleanName("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.Image != nil {
		d.Image = *patch.Image
	}
	d.UpdatedAt = s.now()

	if err := s.store.UpdateDevice(ctx, d); err != nil {
		return nil, s.storeErr("update device", err)
	}

	s.publish(types.EntityDevice, types.ChangeUpdated, d.ID, d.ProjectID)
	return d, nil
}

func (s *Service) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	d, err := s.store.GetDevice(ctx, id)
	if err != nil {
		return s.storeErr("get device", err)
	}
	if err := s.store.DeleteDevice(ctx, id); err != nil {
		return s.storeErr("delete device", err)
	}
	s.publish(types.EntityDevice, types.ChangeDeleted, id, d.ProjectID)
	return nil
}

type MqttPatch struct {
	BrokerAddress *string `json:"broker_address"`
	Port          *int    `json:"port"`
	Username      *string `json:"username"`
	Password      *string `json:"password"`
	ClientID      *string `json:"client_id"`
	KeepAlive     *int    `json:"keep_alive"`
	CleanSession  *bool   `json:"clean_session"`
	UseSSL        *bool   `json:"use_ssl"`
}

func (s *Service) GetMqtt(ctx context.Context, deviceID uuid.UUID) (*types.Mqtt, error) {
	m, err := s.store.GetMqtt(ctx, deviceID)
	return m, s.storeErr("get mqtt config", err)
}

func (s *Service) UpdateMqtt(ctx context.Context, deviceID uuid.UUID, patch MqttPatch) (*types.Mqtt, error) {
	m, err := s.store.GetMqtt(ctx, deviceID)
	if err != nil {
		return nil, s.storeErr("get mqtt config", err)
	}

	if patch.BrokerAddress != nil {
		m.BrokerAddress = *patch.BrokerAddress
	}
	if patch.Port != nil {
		m.Port = *patch.Port
	}
	if patch.Username != nil {
		m.Username = *patch.Username
	}
	if patch.Password != nil {
		m.Password = *patch.Password
	}
	if patch.ClientID != nil {
		m.ClientID = *patch.ClientID
	}
	if patch.KeepAlive != nil {
		m.KeepAlive = *patch.KeepAlive
	}
	if patch.CleanSession != nil {
		m.CleanSession = *patch.CleanSession
	}
	if patch.UseSSL != nil {
		m.UseSSL = *patch.UseSSL
	}

	if err := validateMqtt(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now()

	if err := s.store.UpdateMqtt(ctx, m); err != nil {
		return nil, s.storeErr("update mqtt config", err)
	}

	s.publish(types.EntityMqtt, types.ChangeUpdated, m.ID, deviceID)
	return m, nil
}

func validateMqtt(m *types.Mqtt) error {
	if m.Port < 1 || m.Port > 65535 {
		return types.NewValidationError("port", "MQTT Port Must Be Between 1 And 65535")
	}
	if m.KeepAlive < 0 {
		return types.NewValidationError("keep_alive", "Keep Alive Must Not Be Negative")
	}
	if m.BrokerAddress != "" && !validBrokerHost(m.BrokerAddress) {
		return types.NewValidationError("broker_address", "Invalid Broker Address: %s", m.BrokerAddress)
	}
	return nil
}
