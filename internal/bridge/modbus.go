package bridge

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	mb "github.com/goburrow/modbus"
	"go.uber.org/zap"
)

const (
	DefaultModbusTCPPort = 502
	defaultUnitID        = 1
)

// ModbusProber checks that a Modbus TCP slave answers. It reads holding
// register 0; an exception response still proves the slave is there.
type ModbusProber struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewModbusProber(timeout time.Duration, logger *zap.Logger) *ModbusProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &ModbusProber{timeout: timeout, logger: logger}
}

func (p *ModbusProber) Probe(ctx context.Context, address string, port int) types.ProbeResult {
	if err := ctx.Err(); err != nil {
		return types.ProbeResult{Error: err.Error()}
	}
	if port == 0 {
		port = DefaultModbusTCPPort
	}
	target := net.JoinHostPort(address, strconv.Itoa(port))

	handler := mb.NewTCPClientHandler(target)
	handler.Timeout = p.timeout
	handler.SlaveId = defaultUnitID

	start := time.Now()
	if err := handler.Connect(); err != nil {
		p.logger.Info("Modbus probe failed", zap.String("target", target), zap.Error(err))
		return types.ProbeResult{Error: err.Error(), LatencyMs: time.Since(start).Milliseconds()}
	}
	defer handler.Close()

	_, err := mb.NewClient(handler).ReadHoldingRegisters(0, 1)
	latency := time.Since(start).Milliseconds()

	var exc *mb.ModbusError
	if err != nil && !errors.As(err, &exc) {
		p.logger.Info("Modbus probe failed", zap.String("target", target), zap.Error(err))
		return types.ProbeResult{Error: err.Error(), LatencyMs: latency}
	}

	p.logger.Info("Modbus probe succeeded", zap.String("target", target), zap.Int64("latency_ms", latency))
	return types.ProbeResult{Reachable: true, LatencyMs: latency}
}
