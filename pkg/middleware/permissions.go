package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cfs-platform/transaction-service/pkg/errors"
)

// HeaderOperatorPermissions carries the operator's permission keys as a
// comma-separated list, resolved by the gateway during authentication.
const HeaderOperatorPermissions = "X-Operator-Permissions"

// ContextKeyPermissions is the gin context key for the permission set
const ContextKeyPermissions = "operatorPermissions"

// Permission keys for transaction operations
const (
	PermissionTransactionCreate   = "cfs.transaction.create"
	PermissionTransactionStep     = "cfs.transaction.step"
	PermissionTransactionComplete = "cfs.transaction.complete"
	PermissionTransactionDelete   = "cfs.transaction.delete"
	PermissionFlowManage          = "cfs.flow.manage"
)

// OperatorPermissions middleware parses the permission header into a set.
// Requests without the header get an empty set; enforcement happens in
// RequirePermission on the routes that need it.
func OperatorPermissions() gin.HandlerFunc {
	return func(c *gin.Context) {
		perms := make(map[string]bool)

		header := c.GetHeader(HeaderOperatorPermissions)
		if header != "" {
			for _, p := range strings.Split(header, ",") {
				p = strings.TrimSpace(p)
				if p != "" {
					perms[p] = true
				}
			}
		}

		c.Set(ContextKeyPermissions, perms)
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the operator holds the permission
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasPermission(c, permission) {
			AbortWithAppError(c, errors.ErrForbidden("missing permission: "+permission))
			return
		}
		c.Next()
	}
}

// HasPermission checks whether the operator holds the given permission
func HasPermission(c *gin.Context, permission string) bool {
	val, exists := c.Get(ContextKeyPermissions)
	if !exists {
		return false
	}

	perms, ok := val.(map[string]bool)
	if !ok {
		return false
	}

	return perms[permission]
}

// Permissions returns the operator's permission set
func Permissions(c *gin.Context) map[string]bool {
	if val, exists := c.Get(ContextKeyPermissions); exists {
		if perms, ok := val.(map[string]bool); ok {
			return perms
		}
	}
	return map[string]bool{}
}
