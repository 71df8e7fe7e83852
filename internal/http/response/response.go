package response

import "github.com/gin-gonic/gin"

// Respond writes payload as JSON with the given status.
func Respond(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
