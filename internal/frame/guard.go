package frame

import (
	"net/url"
	"strings"

	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Guard filters inbound host messages by sender origin and frame identity.
type Guard struct {
	suffix   string
	identity string
	log      zerolog.Logger
}

func NewGuard(hostSuffix, identity string, logger *zerolog.Logger) *Guard {
	if logger == nil {
		l := log.Logger
		logger = &l
	}
	return &Guard{
		suffix:   strings.ToLower(strings.Trim(strings.TrimSpace(hostSuffix), ".")),
		identity: identity,
		log:      logger.With().Str("component", "guard").Logger(),
	}
}

// IdentityFromLocation returns the fragment of the frame's own URL.
func IdentityFromLocation(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Fragment
}

func (g *Guard) Identity() string {
	return g.identity
}

// Accept reports whether msg from origin may be acted on. A message without
// an identity is accepted from any trusted origin.
func (g *Guard) Accept(origin string, msg protocol.Inbound) bool {
	if !g.AcceptOrigin(origin) {
		g.log.Debug().Str("origin", origin).Msg("message from untrusted origin")
		return false
	}
	if msg.Identity != "" && msg.Identity != g.identity {
		g.log.Debug().
			Str("got", msg.Identity).
			Str("want", g.identity).
			Msg("message identity mismatch")
		return false
	}
	return true
}

// AcceptOrigin reports whether origin's host is the configured suffix or a
// subdomain of it.
func (g *Guard) AcceptOrigin(origin string) bool {
	if g.suffix == "" {
		return false
	}
	host := originHost(origin)
	if host == "" {
		return false
	}
	return host == g.suffix || strings.HasSuffix(host, "."+g.suffix)
}

func originHost(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
}
