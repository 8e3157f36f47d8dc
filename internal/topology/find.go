package topology

import (
	"context"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
)

// Find* lookups return nil without error when nothing matches.

func (s *Service) FindPortByIPAddress(ctx context.Context, deviceID uuid.UUID, ipAddress string) (*types.DevicePort, error) {
	if deviceID == uuid.Nil || strings.TrimSpace(ipAddress) == "" {
		return nil, paramsMissing("ip_address")
	}
	ip, err := parseIPv4("ip_address", ipAddress)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindPortByIPAddress(ctx, deviceID, ip, uuid.Nil)
	return p, s.storeErr("find port by ip address", err)
}

func (s *Service) FindProtocolByTCPPort(ctx context.Context, devicePortID uuid.UUID, tcpPort int) (*types.Protocol, error) {
	if devicePortID == uuid.Nil {
		return nil, paramsMissing("device_port_id")
	}
	p, err := s.store.FindProtocolByTCPPort(ctx, devicePortID, tcpPort, uuid.Nil)
	return p, s.storeErr("find protocol by tcp port", err)
}

// FindSlaveByAddress searches every protocol of the device. Station numbers
// are matched in canonical form.
func (s *Service) FindSlaveByAddress(ctx context.Context, deviceID uuid.UUID, address string) (*types.SlaveDevice, error) {
	if deviceID == uuid.Nil || strings.TrimSpace(address) == "" {
		return nil, paramsMissing("device_address")
	}
	if ip, err := parseIPv4("device_address", address); err == nil {
		address = ip.String()
	} else if station, err := parseStationAddress("device_address", address); err == nil {
		address = station
	}
	sd, err := s.store.FindSlaveByAddress(ctx, deviceID, address, uuid.Nil)
	return sd, s.storeErr("find slave by address", err)
}
