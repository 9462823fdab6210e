package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/voxify/internal/app"
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
	"github.com/dkeye/voxify/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Handlers serves the read-only REST views over rooms and presence.
type Handlers struct {
	Registry core.RoomRegistry
	Presence *app.PresenceTracker
	Auth     app.Authorizer
	ICE      webrtc.Configuration
	// Identity returns the session user of a request, or "".
	Identity func(c *gin.Context) domain.UserID
	// OpsToken guards the registry-wide room listing. Empty disables it.
	OpsToken string
}

type RoomsResponse struct {
	Rooms []core.RoomInfo `json:"rooms"`
}

type VoiceChannelResponse struct {
	ChannelID    domain.ChannelID        `json:"channel_id"`
	Participants []domain.PresenceRecord `json:"participants"`
	Live         []core.MemberDTO        `json:"live"`
}

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func (h *Handlers) Register(api *gin.RouterGroup) {
	if h.OpsToken != "" {
		api.GET("/rooms", h.opsOnly, h.listRooms)
	}
	api.GET("/channels/:channelID/voice", h.requireUser, h.channelVoice)
	api.GET("/ice-servers", h.iceServers)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

const userKey = "voxify.user"

func (h *Handlers) requireUser(c *gin.Context) {
	var user domain.UserID
	if h.Identity != nil {
		user = h.Identity(c)
	}
	if user == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func (h *Handlers) opsOnly(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.OpsToken)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid ops token"})
		return
	}
	c.Next()
}

func (h *Handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.Registry.List()})
}

func (h *Handlers) channelVoice(c *gin.Context) {
	channel := domain.ChannelID(c.Param("channelID"))
	if channel == "" || len(channel) > domain.MaxIDLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid channel id"})
		return
	}

	user := c.MustGet(userKey).(domain.UserID)
	ok, err := h.Auth.IsMember(c.Request.Context(), user, channel)
	switch {
	case errors.Is(err, repository.ErrChannelNotFound):
		ok = false
	case err != nil:
		log.Error().Err(err).Str("module", "transport.http").Str("channel", string(channel)).Msg("membership lookup")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "membership unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this channel"})
		return
	}

	recs, err := h.Presence.Participants(c.Request.Context(), channel)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.http").Str("channel", string(channel)).Msg("list participants")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presence unavailable"})
		return
	}

	c.JSON(http.StatusOK, VoiceChannelResponse{
		ChannelID:    channel,
		Participants: recs,
		Live:         h.Registry.Members(domain.VoiceRoom(channel)),
	})
}

func (h *Handlers) iceServers(c *gin.Context) {
	servers := h.ICE.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	c.JSON(http.StatusOK, ICEServersResponse{ICEServers: servers})
}
