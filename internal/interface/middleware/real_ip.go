package middleware

import (
	"github.com/gin-gonic/gin"
)

// RealIPKey is the gin context key RealIP stores the client address under.
const RealIPKey = "real_ip"

// RealIP resolves the client address once per request so the rate limiter
// and the access log agree on it. Forwarding headers only count when the
// engine trusts the peer (SetTrustedProxies) or names a TrustedPlatform;
// otherwise the TCP peer address is used.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(RealIPKey, c.ClientIP())
		c.Next()
	}
}

// ClientIP returns the address stored by RealIP, or "unknown" when there is
// none.
func ClientIP(c *gin.Context) string {
	if ip := c.GetString(RealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
