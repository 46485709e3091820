package auth

import "github.com/gin-gonic/gin"

const userIDKey = "userID"

// SetUserID stores the authenticated user's ID in the Gin context.
func SetUserID(c *gin.Context, id int64) {
	c.Set(userIDKey, id)
}

// GetUserID returns the authenticated user's ID or 0.
func GetUserID(c *gin.Context) int64 {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
