package http

import (
	"context"
	"fmt"
	"math"

	"github.com/dkeye/voxify/internal/adapters/signal"
	"github.com/dkeye/voxify/internal/config"
	"github.com/dkeye/voxify/internal/domain"
	transport "github.com/dkeye/voxify/internal/transport/http"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	SessionName   = "voxify_session"
	SessionUserID = "user_id"
)

// SessionIdentity reads the user id the auth service stored in the signed
// session cookie. Anything unreadable counts as anonymous.
func SessionIdentity(c *gin.Context) domain.UserID {
	var id string
	switch v := sessions.Default(c).Get(SessionUserID).(type) {
	case string:
		id = v
	case int:
		id = fmt.Sprint(v)
	case int64:
		id = fmt.Sprint(v)
	case uint:
		id = fmt.Sprint(v)
	case uint64:
		id = fmt.Sprint(v)
	case float64:
		if v == math.Trunc(v) {
			id = fmt.Sprintf("%.0f", v)
		}
	}
	if len(id) > domain.MaxIDLen {
		return ""
	}
	return domain.UserID(id)
}

type Deps struct {
	Signal   *signal.SignalWSController
	Handlers *transport.Handlers
	Gatherer prometheus.Gatherer
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.CORSOrigins
		cc.AllowCredentials = true
		r.Use(cors.New(cc))
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, Secure: cfg.Mode == "release"})
	r.Use(sessions.Sessions(SessionName, store))

	r.GET("/healthz", transport.Health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	deps.Handlers.Register(api)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Strs("cors", cfg.CORSOrigins).Msg("router setup")
	return r
}
