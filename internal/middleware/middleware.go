package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/rkechols/bulk-sms/internal/models"
)

// Claims carried by the gateway's access tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware rejects requests that do not carry a valid bearer token
// signed with JWT_SECRET.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing token", Message: "missing token", Code: http.StatusUnauthorized})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token format", Message: "invalid token format", Code: http.StatusUnauthorized})
			c.Abort()
			return
		}

		secret := []byte(os.Getenv("JWT_SECRET"))
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})

		if err != nil || !token.Valid {
			message := "invalid token"
			if err != nil && strings.Contains(err.Error(), "token is expired") {
				message = "expired token"
			}
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid token", Message: message, Code: http.StatusUnauthorized})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("user_email", claims.Email)
		c.Next()
	}
}
