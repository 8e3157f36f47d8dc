package topology

import (
	"context"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

type IOInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Register     int    `json:"register"`
	StartAddress int    `json:"start_address"`
	Length       int    `json:"length"`
	Conversion   int    `json:"conversion"`
}

type IOPatch struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Register     *int    `json:"register"`
	StartAddress *int    `json:"start_address"`
	Length       *int    `json:"length"`
	Conversion   *int    `json:"conversion"`
}

func parseConversion(code int) (enums.Conversion, error) {
	c, err := enums.ParseConversion(code)
	if err != nil {
		return 0, types.NewValidationError("conversion", "Unknown Conversion %d", code)
	}
	return c, nil
}

func (s *Service) GetIO(ctx context.Context, id uuid.UUID) (*types.IO, error) {
	io, err := s.store.GetIO(ctx, id)
	return io, s.storeErr("get io", err)
}

func (s *Service) ListIOs(ctx context.Context, slaveDeviceID uuid.UUID) ([]types.IO, error) {
	if _, err := s.store.GetSlaveDevice(ctx, slaveDeviceID); err != nil {
		return nil, s.storeErr("get slave device", err)
	}
	ios, err := s.store.ListIOs(ctx, slaveDeviceID)
	return ios, s.storeErr("list ios", err)
}

func (s *Service) CreateIO(ctx context.Context, slaveDeviceID uuid.UUID, in IOInput) (*types.IO, error) {
	if slaveDeviceID == uuid.Nil || in.Register == 0 || in.Conversion == 0 {
		return nil, paramsMissing("register")
	}
	name, err := cleanName("name", in.Name)
	if err != nil {
		return nil, err
	}
	conversion, err := parseConversion(in.Conversion)
	if err != nil {
		return nil, err
	}
	if err := addressRange(in.StartAddress, in.Length); err != nil {
		return nil, err
	}

	slave, err := s.store.GetSlaveDevice(ctx, slaveDeviceID)
	if err != nil {
		return nil, s.storeErr("get slave device", err)
	}
	var register enums.PlcRegister
	err = s.runChecks(ctx, "create io", func(context.Context) (err error) {
		register, err = registerInScope(slave.PlcModel, in.Register)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	io := &types.IO{
		ID:            uuid.New(),
		SlaveDeviceID: slave.ID,
		Name:          name,
		Description:   in.Description,
		Register:      register,
		StartAddress:  in.StartAddress,
		Length:        in.Length,
		Conversion:    conversion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateIO(ctx, io); err != nil {
		return nil, s.storeErr("create io", err)
	}

	s.publish(types.EntityIO, types.ChangeCreated, io.ID, slave.ID)
	return io, nil
}

func (s *Service) UpdateIO(ctx context.Context, id uuid.UUID, patch IOPatch) (*types.IO, error) {
	io, err := s.store.GetIO(ctx, id)
	if err != nil {
		return nil, s.storeErr("get io", err)
	}

	if patch.Name != nil {
		if io.Name, err = cleanName("name", *patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		io.Description = *patch.Description
	}
	if patch.Conversion != nil {
		if io.Conversion, err = parseConversion(*patch.Conversion); err != nil {
			return nil, err
		}
	}
	if patch.StartAddress != nil {
		io.StartAddress = *patch.StartAddress
	}
	if patch.Length != nil {
		io.Length = *patch.Length
	}
	if err := addressRange(io.StartAddress, io.Length); err != nil {
		return nil, err
	}

	if patch.Register != nil {
		slave, err := s.store.GetSlaveDevice(ctx, io.SlaveDeviceID)
		if err != nil {
			return nil, s.storeErr("get slave device", err)
		}
		err = s.runChecks(ctx, "update io", func(context.Context) (err error) {
			io.Register, err = registerInScope(slave.PlcModel, *patch.Register)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	io.UpdatedAt = s.now()

	if err := s.store.UpdateIO(ctx, io); err != nil {
		return nil, s.storeErr("update io", err)
	}

	s.publish(types.EntityIO, types.ChangeUpdated, io.ID, io.SlaveDeviceID)
	return io, nil
}

func (s *Service) DeleteIO(ctx context.Context, id uuid.UUID) error {
	io, err := s.store.GetIO(ctx, id)
	if err != nil {
		return s.storeErr("get io", err)
	}
	if err := s.store.DeleteIO(ctx, id); err != nil {
		return s.storeErr("delete io", err)
	}
	s.publish(types.EntityIO, types.ChangeDeleted, id, io.SlaveDeviceID)
	return nil
}
