// Package host is the demo host application: an HTTP server that embeds a
// verification flow per WebSocket connection, with the browser page acting as
// the remote context. It exists to exercise the SDK end to end; production
// hosts wire the flow into their own environment instead.
package host

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verikit/verikit/flow"
	"github.com/verikit/verikit/internal/config"
	"github.com/verikit/verikit/internal/emulator"
	"github.com/verikit/verikit/internal/logging"
	"github.com/verikit/verikit/internal/monitoring"
	"github.com/verikit/verikit/internal/sessionapi"
	"github.com/verikit/verikit/mount"
	"github.com/verikit/verikit/signal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // demo server, cross-origin pages allowed
	},
}

// Server wraps the demo HTTP server and its dependencies.
type Server struct {
	cfg      *config.Config
	log      *logging.Logger
	metrics  *monitoring.Metrics
	sessions *sessionapi.Client
	router   *gin.Engine
	httpSrv  *http.Server
}

// NewServer assembles the demo host from configuration.
func NewServer(cfg *config.Config, log *logging.Logger) *Server {
	return newServer(cfg, log, nil)
}

func newServer(cfg *config.Config, log *logging.Logger, reg prometheus.Registerer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: monitoring.New(reg),
	}
	if cfg.Verify.APIKey != "" {
		s.sessions = sessionapi.New(sessionapi.Config{
			BaseURL: cfg.Verify.APIBaseURL,
			APIKey:  cfg.Verify.APIKey,
		})
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/sessions", s.createSession)
	router.GET("/verify/ws", s.handleFlow)

	s.router = router
	return s
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.log.Info("demo host listening", zap.String("addr", addr))

	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

type createSessionRequest struct {
	Service string `json:"service"`
	Alias   string `json:"alias"`
}

// createSession provisions a verification session server-side. Without an API
// key the demo mints a local id instead of calling the service.
func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Service == "" {
		req.Service = s.cfg.Verify.Service
	}

	if s.sessions == nil {
		c.JSON(http.StatusCreated, gin.H{
			"session_id": "local-" + uuid.NewString(),
			"service":    req.Service,
			"status":     "pending",
		})
		return
	}

	sess, err := s.sessions.CreateSession(c.Request.Context(), req.Service, req.Alias)
	if err != nil {
		s.log.Error("session creation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type stateReport struct {
	Type  string `json:"type"`
	State string `json:"state"`
	Open  bool   `json:"open"`
	URL   string `json:"url,omitempty"`
}

// handleFlow runs one embedded flow per WebSocket connection. The connected
// page forwards the remote flow's lifecycle signals as JSON frames; the
// server reports the resulting controller state after each one.
func (s *Server) handleFlow(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = "local-" + uuid.NewString()
	}
	service := flow.ServiceType(c.DefaultQuery("service", s.cfg.Verify.Service))
	mode := flow.Mode(c.DefaultQuery("mode", string(flow.ModeModal)))
	mountPoint := c.DefaultQuery("mount", "verify-root")

	log := s.log.With(zap.String("session_id", sessionID))

	remote := emulator.NewRemote()
	hostPage := mount.NewMemoryHost()
	hostPage.AddMountPoint(mountPoint)
	adapter := mount.NewMemoryAdapter(hostPage, remote)

	channel := signal.NewWSChannel(conn, log)

	installer := emulator.Installer(func(call emulator.CapabilityCall) (any, error) {
		log.Info("capability call forwarded",
			zap.String("target", call.Target),
			zap.String("method", call.Method))
		return gin.H{"result": "ok"}, nil
	})

	var writeMu sync.Mutex

	fl, err := flow.New(sessionID, service,
		flow.WithAdapter(adapter),
		flow.WithChannel(channel),
		flow.WithInstaller(installer),
		flow.WithProxyTargets(s.cfg.Verify.ProxyTargets...),
		flow.WithLogger(log),
		flow.WithMetrics(s.metrics),
	)
	if err != nil {
		s.writeJSON(&writeMu, conn, gin.H{"type": "error", "error": err.Error()})
		channel.Close()
		return
	}

	fl.On(signal.Finish, func() { log.Info("verification finished") })
	fl.On(signal.Close, func() { log.Info("verification dismissed") })

	if err := fl.Init(flow.DisplayOptions{
		Mode:         mode,
		MountPointID: mountPoint,
		Language:     c.DefaultQuery("lang", s.cfg.Verify.Language),
	}); err != nil {
		s.writeJSON(&writeMu, conn, gin.H{"type": "error", "error": err.Error()})
		channel.Close()
		return
	}
	if mode == flow.ModeModal {
		fl.OpenSession()
	}

	// Report controller state after each inbound signal. The flow's router
	// subscribed first, so this observer sees post-transition state.
	channel.Subscribe(func(m signal.Message) {
		s.writeJSON(&writeMu, conn, stateReport{
			Type:  "state",
			State: fl.State().String(),
			Open:  fl.IsOpen(),
		})
	})

	s.writeJSON(&writeMu, conn, stateReport{
		Type:  "config",
		State: fl.State().String(),
		Open:  fl.IsOpen(),
		URL:   fl.URL(),
	})

	go func() {
		<-channel.Done()
		fl.Shutdown()
		log.Debug("flow connection closed")
	}()
}

func (s *Server) writeJSON(mu *sync.Mutex, conn *websocket.Conn, v any) {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		s.log.Debug("websocket write failed", zap.Error(err))
	}
}
