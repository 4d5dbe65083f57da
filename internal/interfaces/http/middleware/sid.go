package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/billing/internal/shared/id"
	"github.com/orris-inc/billing/internal/shared/utils"
)

// RequireSID rejects requests whose route parameter is not an ID of the
// expected kind, e.g. a plan change ID sent to a subscription route.
func RequireSID(param, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := id.ValidatePrefix(c.Param(param), prefix); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
			c.Abort()
			return
		}
		c.Next()
	}
}
