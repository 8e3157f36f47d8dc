package system

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/api/rest"
	"github.com/KevinKickass/OpenMachineConfig/internal/api/rpc"
	"github.com/KevinKickass/OpenMachineConfig/internal/api/websocket"
	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"github.com/KevinKickass/OpenMachineConfig/internal/bridge"
	"github.com/KevinKickass/OpenMachineConfig/internal/config"
	"github.com/KevinKickass/OpenMachineConfig/internal/devices"
	"github.com/KevinKickass/OpenMachineConfig/internal/dispatch"
	"github.com/KevinKickass/OpenMachineConfig/internal/interfaces"
	"github.com/KevinKickass/OpenMachineConfig/internal/storage"
	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type LifecycleManager struct {
	config      *config.Config
	store       storage.Store
	postgres    *storage.PostgresClient
	service     *topology.Service
	dispatcher  *dispatch.Dispatcher
	templates   *devices.TemplateLoader
	prober      *bridge.Prober
	modbus      *bridge.ModbusProber
	authService *auth.AuthService
	wsHub       *websocket.Hub
	logger      *zap.Logger

	restServer   *rest.Server
	grpcServer   *grpc.Server
	healthServer *health.Server
	stopHub      context.CancelFunc

	stateMu      sync.RWMutex
	currentState SystemState
	lastError    string
	startedAt    time.Time

	shutdownOnce sync.Once
}

// NewLifecycleManager opens the configured store and wires the services.
// Nothing listens until Start.
func NewLifecycleManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	lm := &LifecycleManager{
		config:       cfg,
		logger:       logger,
		currentState: StateInitializing,
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := storage.NewPostgresClient(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("Database schema up to date")
		}
		lm.postgres = pg
		lm.store = pg
	default:
		logger.Warn("Using in-memory store, configuration is lost on restart")
		lm.store = storage.NewMemoryStore()
	}

	templates, err := devices.NewTemplateLoader(cfg.DeviceTypes.SearchPaths, cfg.DeviceTypes.CacheTTL, logger)
	if err != nil {
		lm.closeStore()
		return nil, fmt.Errorf("failed to create template loader: %w", err)
	}
	authService, err := auth.NewAuthService(cfg.Auth, logger)
	if err != nil {
		lm.closeStore()
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	lm.templates = templates
	lm.authService = authService
	lm.service = topology.NewService(lm.store, logger)
	lm.dispatcher = dispatch.NewDispatcher(lm.service, logger)
	lm.prober = bridge.NewProber(cfg.Mqtt.ProbeTimeout, logger)
	lm.modbus = bridge.NewModbusProber(cfg.Mqtt.ProbeTimeout, logger)
	lm.wsHub = websocket.NewHub(logger)
	lm.service.SetPublisher(lm.wsHub)

	return lm, nil
}

func (lm *LifecycleManager) Config() *config.Config { return lm.config }

func (lm *LifecycleManager) Service() *topology.Service { return lm.service }

func (lm *LifecycleManager) Dispatcher() *dispatch.Dispatcher { return lm.dispatcher }

func (lm *LifecycleManager) MqttProber() interfaces.MqttProber { return lm.prober }

func (lm *LifecycleManager) SlaveProber() interfaces.SlaveProber { return lm.modbus }

// Start synchronises the device type templates and starts the websocket
// hub and both API servers.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting OpenMachineConfig")

	n, err := lm.service.SyncDeviceTypes(ctx, lm.templates)
	if err != nil {
		lm.setError(err)
		return err
	}
	lm.logger.Info("Device types loaded", zap.Int("count", n))

	hubCtx, cancel := context.WithCancel(context.Background())
	lm.stopHub = cancel
	go lm.wsHub.Run(hubCtx)

	if err := lm.startGRPCServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start gRPC: %w", err))
		return err
	}

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	if err := lm.restServer.Start(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.stateMu.Lock()
	lm.startedAt = time.Now()
	lm.stateMu.Unlock()
	if err := lm.setState(StateRunning); err != nil {
		return err
	}

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("store", lm.config.Database.Driver))
	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	if lm.config.Server.GRPCPort == 0 {
		lm.logger.Info("gRPC server disabled")
		return nil
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer, lm.healthServer = rpc.NewServer(lm.dispatcher, lm.authService, lm.logger)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.Int("port", lm.config.Server.GRPCPort),
			zap.String("services", rpc.ServiceName))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

// ReloadDeviceTypes drops the template cache and upserts the templates
// again. Devices already provisioned keep their ports.
func (lm *LifecycleManager) ReloadDeviceTypes(ctx context.Context) (int, error) {
	if err := lm.setState(StateReloading); err != nil {
		return 0, interfaces.ErrBusy
	}

	lm.templates.ClearCache()
	n, err := lm.service.SyncDeviceTypes(ctx, lm.templates)
	if err != nil {
		lm.logger.Error("Device type reload failed", zap.Error(err))
		lm.setState(StateRunning)
		return 0, err
	}

	lm.logger.Info("Device types reloaded", zap.Int("count", n))
	return n, lm.setState(StateRunning)
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	if lm.healthServer != nil {
		lm.healthServer.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lm.restServer.Shutdown(ctx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.logger.Info("Stopping gRPC server")
			lm.grpcServer.GracefulStop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		lm.logger.Info("Graceful shutdown completed")
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		err = fmt.Errorf("shutdown timeout exceeded")
	}
	if err == nil {
		select {
		case err = <-errChan:
		default:
		}
	}

	if lm.stopHub != nil {
		lm.stopHub()
	}
	lm.closeStore()
	return err
}

func (lm *LifecycleManager) closeStore() {
	if lm.postgres != nil {
		lm.postgres.Close()
	}
}

func (lm *LifecycleManager) setState(state SystemState) error {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Rejected state transition", zap.Error(err))
		return err
	}
	lm.logger.Debug("State changed",
		zap.String("from", lm.currentState.String()),
		zap.String("to", state.String()))
	lm.currentState = state
	return nil
}

func (lm *LifecycleManager) setError(err error) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	lm.currentState = StateError
	lm.lastError = err.Error()
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	status := interfaces.SystemStatus{
		State:       lm.currentState.String(),
		StoreDriver: lm.config.Database.Driver,
		WSClients:   lm.wsHub.GetClientCount(),
		Error:       lm.lastError,
	}
	if !lm.startedAt.IsZero() {
		status.StartedAt = lm.startedAt.Unix()
	}
	lm.stateMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if dts, err := lm.service.ListDeviceTypes(ctx); err == nil {
		status.DeviceTypes = len(dts)
	}
	return status
}
