package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// APIDocsConfig controls access to the API documentation routes
type APIDocsConfig struct {
	Enabled bool
	// AllowedIPs restricts access to these addresses or CIDR ranges; empty allows everyone
	AllowedIPs []string
	// Auth runs before the documentation is served when set, e.g. ShopAuth
	Auth gin.HandlerFunc
}

// APIDocsProtection hides the documentation when disabled and otherwise
// applies the IP allowlist and the optional auth handler, in that order.
// Invalid allowlist entries are ignored.
func APIDocsProtection(cfg APIDocsConfig) gin.HandlerFunc {
	allowed := parseAllowlist(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c),
			))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !allowed.contains(net.ParseIP(c.ClientIP())) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c),
			))
			return
		}

		if cfg.Auth != nil {
			cfg.Auth(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

type allowlist struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowlist(entries []string) allowlist {
	var a allowlist
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				a.nets = append(a.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			a.ips = append(a.ips, ip)
		}
	}
	return a
}

func (a allowlist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range a.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range a.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
