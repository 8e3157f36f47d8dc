package bridge

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"go.uber.org/zap"
)

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name string
		in   types.Mqtt
		want string
	}{
		{"plain", types.Mqtt{BrokerAddress: "broker.local", Port: 1883}, "tcp://broker.local:1883"},
		{"tls", types.Mqtt{BrokerAddress: "10.0.0.5", Port: 8883, UseSSL: true}, "ssl://10.0.0.5:8883"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BrokerURL(tt.in); got != tt.want {
				t.Errorf("BrokerURL = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	p := NewProber(time.Second, zap.NewNop())

	opts := p.clientOptions(types.Mqtt{
		BrokerAddress: "broker.local", Port: 1883,
		Username: "plc", Password: "secret",
		ClientID: "line-1", KeepAlive: 30, CleanSession: true,
	})
	if opts.ClientID != "line-1" || opts.Username != "plc" || opts.Password != "secret" {
		t.Errorf("identity = %q %q %q", opts.ClientID, opts.Username, opts.Password)
	}
	if opts.KeepAlive != 30 || !opts.CleanSession || opts.AutoReconnect {
		t.Errorf("session = keepalive %d clean %v reconnect %v", opts.KeepAlive, opts.CleanSession, opts.AutoReconnect)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://broker.local:1883" {
		t.Errorf("servers = %v", opts.Servers)
	}

	anon := p.clientOptions(types.Mqtt{BrokerAddress: "broker.local", Port: 8883, UseSSL: true})
	if anon.ClientID == "" || anon.TLSConfig == nil {
		t.Errorf("anonymous tls options = %+v", anon)
	}
}

func TestProbeUnconfigured(t *testing.T) {
	res := NewProber(0, zap.NewNop()).Probe(context.Background(), types.Mqtt{})
	if res.Reachable || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestProbeUnreachable(t *testing.T) {
	// A listener that is closed right away leaves a port nothing answers on.
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()

	res := NewProber(2*time.Second, zap.NewNop()).Probe(context.Background(), types.Mqtt{
		BrokerAddress: "127.0.0.1", Port: port, ClientID: "probe-" + strconv.Itoa(port),
	})
	if res.Reachable || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
}
