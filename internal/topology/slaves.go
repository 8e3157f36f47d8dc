package topology

import (
	"context"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type SlaveInput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PlcModel      int    `json:"plc_model"`
	ScanRate      int    `json:"scan_rate"`
	DeviceAddress string `json:"device_address"`
}

type SlavePatch struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	PlcModel      *int    `json:"plc_model"`
	ScanRate      *int    `json:"scan_rate"`
	DeviceAddress *string `json:"device_address"`
}

func parsePlcModel(code int) (enums.PlcModel, error) {
	m, err := enums.ParsePlcModel(code)
	if err != nil {
		return nil, types.NewValidationError("plc_model", "Unknown PLC Model %d", code)
	}
	return m, nil
}

func validScanRate(ms int) error {
	if ms < 0 {
		return types.NewValidationError("scan_rate", "Scan Rate Must Not Be Negative")
	}
	return nil
}

func (s *Service) GetSlaveDevice(ctx context.Context, id uuid.UUID) (*types.SlaveDevice, error) {
	sd, err := s.store.GetSlaveDevice(ctx, id)
	return sd, s.storeErr("get slave device", err)
}

func (s *Service) ListSlaveDevices(ctx context.Context, protocolID uuid.UUID) ([]types.SlaveDevice, error) {
	if _, err := s.store.GetProtocol(ctx, protocolID); err != nil {
		return nil, s.storeErr("get protocol", err)
	}
	sds, err := s.store.ListSlaveDevices(ctx, protocolID)
	return sds, s.storeErr("list slave devices", err)
}

func (s *Service) CreateSlaveDevice(ctx context.Context, protocolID uuid.UUID, in SlaveInput) (*types.SlaveDevice, error) {
	if protocolID == uuid.Nil || in.PlcModel == 0 {
		return nil, paramsMissing("plc_model")
	}
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}
	model, err := parsePlcModel(in.PlcModel)
	if err != nil {
		return nil, err
	}
	if err := validScanRate(in.ScanRate); err != nil {
		return nil, err
	}

	proto, err := s.store.GetProtocol(ctx, protocolID)
	if err != nil {
		return nil, s.storeErr("get protocol", err)
	}

	var address string
	err = s.runChecks(ctx, "create slave device",
		func(context.Context) error { return modelSupported(proto.Type, model) },
		func(ctx context.Context) (err error) {
			address, err = s.slaveAddress(ctx, proto, in.DeviceAddress, uuid.Nil)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sd := &types.SlaveDevice{
		ID:            uuid.New(),
		ProtocolID:    proto.ID,
		Name:          name,
		Description:   in.Description,
		PlcModel:      model,
		ScanRate:      in.ScanRate,
		DeviceAddress: address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSlaveDevice(ctx, sd); err != nil {
		return nil, s.storeErr("create slave device", err)
	}

	s.publish(types.EntitySlaveDevice, types.ChangeCreated, sd.ID, proto.ID)
	return sd, nil
}

func (s *Service) UpdateSlaveDevice(ctx context.Context, id uuid.UUID, patch SlavePatch) (*types.SlaveDevice, error) {
	sd, err := s.store.GetSlaveDevice(ctx, id)
	if err != nil {
		return nil, s.storeErr("get slave device", err)
	}
	proto, err := s.store.GetProtocol(ctx, sd.ProtocolID)
	if err != nil {
		return nil, s.storeErr("get protocol", err)
	}

	if patch.Name != nil {
		if sd.Name, err = cleanName("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		sd.Description = *patch.Description
	}
	if patch.ScanRate != nil {
		if err := validScanRate(*patch.ScanRate); err != nil {
			return nil, err
		}
		sd.ScanRate = *patch.ScanRate
	}

	var checks []check
	if patch.PlcModel != nil {
		model, err := parsePlcModel(*patch.PlcModel)
		if err != nil {
			return nil, err
		}
		checks = append(checks,
			func(context.Context) error { return modelSupported(proto.Type, model) },
			func(ctx context.Context) error {
				if model.Vendor() == sd.PlcModel.Vendor() {
					return nil
				}
				ios, err := s.store.ListIOs(ctx, sd.ID)
				if err != nil {
					return s.storeErr("list ios", err)
				}
				if len(ios) > 0 {
					return types.NewValidationError("plc_model", "PLC Vendor Cannot Change While Slave Device %s Has IOs", sd.Name)
				}
				return nil
			},
			func(context.Context) error {
				sd.PlcModel = model
				return nil
			},
		)
	}
	if patch.DeviceAddress != nil {
		checks = append(checks, func(ctx context.Context) (err error) {
			sd.DeviceAddress, err = s.slaveAddress(ctx, proto, *patch.DeviceAddress, sd.ID)
			return err
		})
	}
	if err := s.runChecks(ctx, "update slave device", checks...); err != nil {
		return nil, err
	}
	sd.UpdatedAt = s.now()

	if err := s.store.UpdateSlaveDevice(ctx, sd); err != nil {
		return nil, s.storeErr("update slave device", err)
	}

	s.publish(types.EntitySlaveDevice, types.ChangeUpdated, sd.ID, proto.ID)
	return sd, nil
}

func (s *Service) DeleteSlaveDevice(ctx context.Context, id uuid.UUID) error {
	sd, err := s.store.GetSlaveDevice(ctx, id)
	if err != nil {
		return s.storeErr("get slave device", err)
	}
	if err := s.store.DeleteSlaveDevice(ctx, id); err != nil {
		return s.storeErr("delete slave device", err)
	}
	s.publish(types.EntitySlaveDevice, types.ChangeDeleted, id, sd.ProtocolID)
	return nil
}
