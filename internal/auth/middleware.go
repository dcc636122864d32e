package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserAuth enforces bearer JWT tokens signed with HS256 and stores the claims
// on the request context.
func UserAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// RequireRole gates a route group to the listed roles. Admins pass every gate.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles)+1)
	allowed[RoleAdmin] = true
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claimsAny, ok := c.Get("claims")
		claims, cast := claimsAny.(Claims)
		if !ok || !cast || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by UserAuth, if any.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	claimsAny, ok := c.Get("claims")
	if !ok {
		return Claims{}, false
	}
	claims, ok := claimsAny.(Claims)
	return claims, ok
}
