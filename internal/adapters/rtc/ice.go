// Package rtc turns configured STUN/TURN servers into the WebRTC configuration
// advertised to browser peers. No media flows through the relay.
package rtc

import (
	"fmt"

	"github.com/dkeye/voxify/internal/config"
	"github.com/pion/webrtc/v4"
)

func ICEServers(servers []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		ice := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			ice.Credential = s.Credential
			ice.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, ice)
	}
	return out
}

func Configuration(servers []config.ICEServer) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: ICEServers(servers)}
}

// Validate builds and closes a throwaway peer connection, which rejects
// malformed ICE server URLs and missing TURN credentials.
func Validate(cfg webrtc.Configuration) error {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return fmt.Errorf("invalid ice servers: %w", err)
	}
	return pc.Close()
}
