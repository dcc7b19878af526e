// Package endpoint decides where the streaming service control API lives.
//
// Resolution happens once per session. In dev mode the service runs on
// another host and is reached at http://<host>:<port>. In cohosted mode the
// service shares an origin with the caller and the base is empty, so every
// request path stays relative. Explicit mode uses a configured base verbatim.
package endpoint

import (
	"net"
	"strconv"
	"strings"

	"loopctl/internal/config"
)

// DefaultControlPort is the fixed service port used in dev mode.
const DefaultControlPort = 5000

// Environment captures the inputs to endpoint resolution.
type Environment struct {
	Mode    string
	Host    string
	Port    int
	BaseURL string
}

// FromConfig builds an Environment from the [remote] section.
func FromConfig(cfg *config.Config) Environment {
	if cfg == nil {
		return Environment{Mode: config.ModeCohosted}
	}
	return Environment{
		Mode:    cfg.Remote.Mode,
		Host:    cfg.Remote.Host,
		Port:    cfg.Remote.ControlPort,
		BaseURL: cfg.Remote.BaseURL,
	}
}

// Resolve returns the base URL every request path is appended to.
// An empty result means paths are used as-is.
func Resolve(env Environment) string {
	switch env.Mode {
	case config.ModeDev:
		host := strings.Trim(strings.TrimSpace(env.Host), "[]")
		if host == "" {
			host = "localhost"
		}
		port := env.Port
		if port == 0 {
			port = DefaultControlPort
		}
		return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	case config.ModeExplicit:
		return strings.TrimRight(strings.TrimSpace(env.BaseURL), "/")
	default:
		return ""
	}
}
