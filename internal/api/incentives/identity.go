package incentives

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream auth proxy. The engine performs no
// authentication itself, it only trusts and parses these.
const (
	HeaderUserID     = "X-User-ID"
	HeaderUserRole   = "X-User-Role"
	HeaderVentureIDs = "X-Venture-IDs"
)

// Role keys recognized by the authorization checks.
const (
	RoleAdmin      = "ADMIN"
	RoleCEO        = "CEO"
	RoleLeadership = "LEADERSHIP"
	RoleFinance    = "FINANCE"
)

const callerContextKey = "caller"

// Caller is the parsed identity attached to every authenticated request.
type Caller struct {
	UserID     uint
	RoleKey    string
	VentureIDs []uint
}

// IsAdmin reports whether the caller may run previews, commits, and rule
// mutations.
func (c *Caller) IsAdmin() bool {
	return c.RoleKey == RoleAdmin || c.RoleKey == RoleCEO
}

// IsLeadership reports whether the caller may read other users' data.
func (c *Caller) IsLeadership() bool {
	return c.IsAdmin() || c.RoleKey == RoleLeadership || c.RoleKey == RoleFinance
}

// HasVenture reports whether a venture is within the caller's scope. Admins
// are unrestricted.
func (c *Caller) HasVenture(ventureID uint) bool {
	if c.IsAdmin() {
		return true
	}
	for _, id := range c.VentureIDs {
		if id == ventureID {
			return true
		}
	}
	return false
}

// IdentityMiddleware parses the upstream identity headers into a Caller and
// rejects requests that carry none.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := parseCaller(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authentication required",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// CallerFrom retrieves the parsed identity from the request context.
func CallerFrom(c *gin.Context) (*Caller, bool) {
	value, ok := c.Get(callerContextKey)
	if !ok {
		return nil, false
	}
	caller, ok := value.(*Caller)
	return caller, ok
}

func parseCaller(c *gin.Context) (*Caller, error) {
	idStr := c.GetHeader(HeaderUserID)
	if idStr == "" {
		return nil, fmt.Errorf("missing %s header", HeaderUserID)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid %s header: %s", HeaderUserID, idStr)
	}

	role := strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole)))
	if role == "" {
		return nil, fmt.Errorf("missing %s header", HeaderUserRole)
	}

	caller := &Caller{UserID: uint(id), RoleKey: role}

	for _, part := range strings.Split(c.GetHeader(HeaderVentureIDs), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ventureID, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s header entry: %s", HeaderVentureIDs, part)
		}
		caller.VentureIDs = append(caller.VentureIDs, uint(ventureID))
	}

	return caller, nil
}
