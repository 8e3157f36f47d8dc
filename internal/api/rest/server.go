package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/api/websocket"
	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"github.com/KevinKickass/OpenMachineConfig/internal/config"
	"github.com/KevinKickass/OpenMachineConfig/internal/interfaces"
	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	svc         *topology.Service
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	upgrader    *gorillaws.Upgrader
	authService *auth.AuthService
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.AuthService) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		svc:         lm.Service(),
		logger:      logger,
		wsHub:       wsHub,
		upgrader:    websocket.NewUpgrader(cfg.Server.AllowedOrigins),
		authService: authService,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(logger))
	s.router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	read := auth.RequirePermission(auth.PermOperator)
	write := auth.RequirePermission(auth.PermTechnician)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/auth/login", s.login)

		protected := v1.Group("")
		protected.Use(s.authService.AuthMiddleware())

		protected.GET("/auth/me", s.getCurrentUser)

		// ==================== DISCOVERY ====================
		protected.GET("/enums", read, s.listEnums)
		protected.GET("/enums/:name", read, s.getEnum)
		protected.GET("/device-types", read, s.listDeviceTypes)
		protected.GET("/device-types/:id", read, s.getDeviceType)

		// ==================== PROJECTS ====================
		projects := protected.Group("/projects")
		{
			projects.GET("", read, s.listProjects)
			projects.GET("/:id", read, s.getProject)
			projects.GET("/:id/devices", read, s.listDevices)

			projects.POST("", write, s.createProject)
			projects.PATCH("/:id", write, s.updateProject)
			projects.DELETE("/:id", write, s.deleteProject)
			projects.POST("/:id/devices", write, s.createDevice)
		}

		// ==================== DEVICES ====================
		devices := protected.Group("/devices")
		{
			devices.GET("/:id", read, s.getDevice)
			devices.GET("/:id/ports", read, s.listDevicePorts)
			devices.GET("/:id/audit", read, s.auditDevice)
			devices.GET("/:id/mqtt", read, s.getMqtt)

			devices.PATCH("/:id", write, s.updateDevice)
			devices.DELETE("/:id", write, s.deleteDevice)
			devices.PATCH("/:id/mqtt", write, s.updateMqtt)
			devices.POST("/:id/mqtt/test", write, s.testMqtt)
		}

		// ==================== PORTS ====================
		ports := protected.Group("/ports")
		{
			ports.GET("/:id", read, s.getDevicePort)
			ports.GET("/:id/setting", read, s.getPortSetting)
			ports.GET("/:id/protocols", read, s.listProtocols)

			ports.PATCH("/:id", write, s.updateDevicePort)
			ports.PATCH("/:id/setting", write, s.updatePortSetting)
			ports.POST("/:id/protocols", write, s.createProtocol)
		}

		// ==================== PROTOCOLS / SLAVES / IO ====================
		protocols := protected.Group("/protocols")
		{
			protocols.GET("/:id", read, s.getProtocol)
			protocols.GET("/:id/slaves", read, s.listSlaves)

			protocols.PATCH("/:id", write, s.updateProtocol)
			protocols.DELETE("/:id", write, s.deleteProtocol)
			protocols.POST("/:id/slaves", write, s.createSlave)
		}

		slaves := protected.Group("/slaves")
		{
			slaves.GET("/:id", read, s.getSlave)
			slaves.GET("/:id/ios", read, s.listIOs)

			slaves.PATCH("/:id", write, s.updateSlave)
			slaves.DELETE("/:id", write, s.deleteSlave)
			slaves.POST("/:id/ios", write, s.createIO)
			slaves.POST("/:id/test", write, s.testSlave)
		}

		ios := protected.Group("/ios")
		{
			ios.GET("/:id", read, s.getIO)
			ios.PATCH("/:id", write, s.updateIO)
			ios.DELETE("/:id", write, s.deleteIO)
		}

		// ==================== RULES ====================
		validate := protected.Group("/validate")
		validate.Use(read)
		{
			validate.POST("/port-address", s.validatePortAddress)
			validate.POST("/tcp-port", s.validateTCPPort)
			validate.POST("/protocol-transport", s.validateProtocolTransport)
			validate.POST("/slave-address", s.validateSlaveAddress)
			validate.POST("/io-register", s.validateIORegister)
		}

		// Generic dispatcher. Reads need operator, mutations technician.
		protected.POST("/query", read, s.query)

		// ==================== SYSTEM ====================
		protected.GET("/system/status", read, s.getSystemStatus)
		protected.POST("/system/reload-device-types", auth.RequirePermission(auth.PermAdmin), s.reloadDeviceTypes)
		protected.GET("/ws", read, s.wsConnect)
	}
}
