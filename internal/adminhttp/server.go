// Package adminhttp is the read-only admin HTTP surface sitting
// alongside a NetworkPeer: health/ready probes, a Prometheus scrape
// endpoint, and peer/election introspection. It adds no persistence,
// auth, or UI (spec.md §1 Non-goals carry over to this ambient
// surface). Grounded on danmuck-edgectl's internal/ghost.Appear/
// RegisterRoutes idiom.
package adminhttp

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"meshpeer/internal/election"
	"meshpeer/internal/observability"
	"meshpeer/internal/peer"
)

// Server is the admin HTTP surface for one NetworkPeer.
type Server struct {
	node    string
	addr    string
	peer    *peer.NetworkPeer
	started time.Time

	router *gin.Engine
}

// New builds a Server for peer p, listening on addr, tagging metrics
// and logs with node, and allowing CORS from corsOrigins.
func New(node, addr string, p *peer.NetworkPeer, corsOrigins []string) *Server {
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		node:    node,
		addr:    addr,
		peer:    p,
		started: time.Now(),
		router:  r,
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying gin engine, e.g. for tests that want
// to issue requests without binding a real socket.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve blocks, running the admin HTTP server on s.addr.
func (s *Server) Serve() error {
	return s.router.Run(s.addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.started).String(),
			"node":   s.node,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.peer.IsListening() || s.peer.Election.IsConnectedAsClient()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":      ready,
			"listening":  s.peer.IsListening(),
			"advertised": s.peer.IsAdvertising(),
			"node":       s.node,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/peers", func(c *gin.Context) {
		peers := s.peer.Registry.Get()
		out := make([]gin.H, 0, len(peers))
		for _, p := range peers {
			out = append(out, gin.H{
				"name":   p.Host.Name,
				"port":   p.Host.Port,
				"source": p.Source.String(),
				"time":   p.Time,
			})
		}
		c.JSON(http.StatusOK, gin.H{"peers": out, "count": len(out)})
	})

	s.router.GET("/state", func(c *gin.Context) {
		m := s.peer.Election
		serverHost, connectedAsClient := m.ServerHost()

		c.JSON(http.StatusOK, gin.H{
			"node":                s.node,
			"local_host":          s.peer.LocalHost(),
			"listening":           s.peer.IsListening(),
			"advertising":         s.peer.IsAdvertising(),
			"client_state":        m.ClientState.Load().String(),
			"connected_as_client": connectedAsClient && m.ClientState.Load() == election.Connected,
			"connected_as_server": m.IsConnectedAsServer(),
			"server_host":         serverHost,
			"confirmed_clients":   len(m.ConfirmedClients.Snapshot()),
			"registry_size":       s.peer.Registry.Size(),
		})
	})

	observability.SetRegistrySize(s.peer.Registry.Size())
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
