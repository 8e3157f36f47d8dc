package bridge

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

// serveOnce answers a single read holding registers request with pdu.
func serveOnce(t *testing.T, pdu []byte) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		req := make([]byte, 12)
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}
		length := len(pdu) + 1
		resp := append([]byte{req[0], req[1], 0, 0, byte(length >> 8), byte(length), req[6]}, pdu...)
		conn.Write(resp)
	}()

	return lis.Addr().(*net.TCPAddr).Port
}

func TestModbusProbe(t *testing.T) {
	tests := []struct {
		name string
		pdu  []byte
	}{
		{"register value", []byte{0x03, 0x02, 0x00, 0x2A}},
		{"illegal address exception", []byte{0x83, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := serveOnce(t, tt.pdu)
			res := NewModbusProber(2*time.Second, zap.NewNop()).Probe(context.Background(), "127.0.0.1", port)
			if !res.Reachable {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestModbusProbeUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()

	res := NewModbusProber(time.Second, zap.NewNop()).Probe(context.Background(), "127.0.0.1", port)
	if res.Reachable || res.Error == "" {
		t.Errorf("result = %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := NewModbusProber(time.Second, zap.NewNop()).Probe(ctx, "127.0.0.1", port); res.Reachable {
		t.Errorf("cancelled probe = %+v", res)
	}
}
