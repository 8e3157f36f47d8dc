// Package bridge checks connectivity to the external systems a device is
// configured to talk to.
package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultProbeTimeout = 5 * time.Second
	disconnectQuiesce   = 250 // milliseconds
	tlsMinVersion       = tls.VersionTLS12
)

// Prober opens a short-lived MQTT session with a device's broker settings.
type Prober struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewProber(timeout time.Duration, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{timeout: timeout, logger: logger}
}

// BrokerURL returns the paho broker URL, ssl:// when UseSSL is set.
func BrokerURL(m types.Mqtt) string {
	scheme := "tcp"
	if m.UseSSL {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(m.BrokerAddress, strconv.Itoa(m.Port)))
}

func (p *Prober) clientOptions(m types.Mqtt) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(m))

	clientID := m.ClientID
	if clientID == "" {
		clientID = "omc-probe-" + uuid.NewString()[:8]
	}
	opts.SetClientID(clientID)

	if m.Username != "" {
		opts.SetUsername(m.Username)
		opts.SetPassword(m.Password)
	}
	opts.SetCleanSession(m.CleanSession)
	opts.SetKeepAlive(time.Duration(m.KeepAlive) * time.Second)
	opts.SetConnectTimeout(p.timeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	if m.UseSSL {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// Probe connects, then disconnects. It never returns an error: failures are
// reported in the result.
func (p *Prober) Probe(ctx context.Context, m types.Mqtt) types.ProbeResult {
	if m.BrokerAddress == "" {
		return types.ProbeResult{Error: "broker address is not configured"}
	}

	start := time.Now()
	client := pahomqtt.NewClient(p.clientOptions(m))
	token := client.Connect()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	var err error
	select {
	case <-token.Done():
		err = token.Error()
	case <-timer.C:
		err = fmt.Errorf("timeout after %v", p.timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	latency := time.Since(start).Milliseconds()

	if client.IsConnected() {
		client.Disconnect(disconnectQuiesce)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Debug("MQTT probe cancelled", zap.String("broker", BrokerURL(m)))
		} else {
			p.logger.Info("MQTT probe failed", zap.String("broker", BrokerURL(m)), zap.Error(err))
		}
		return types.ProbeResult{Error: err.Error(), LatencyMs: latency}
	}

	p.logger.Info("MQTT probe succeeded", zap.String("broker", BrokerURL(m)), zap.Int64("latency_ms", latency))
	return types.ProbeResult{Reachable: true, LatencyMs: latency}
}
