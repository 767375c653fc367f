package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID  = "anon_id"
	ctxIsGuest = "is_guest"
)

// generateJWT issues a token carrying the anonymous id.
func (h *Handler) generateJWT(anonID string, guest bool) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"guest":   guest,
		"exp":     time.Now().Add(h.Cfg.Auth.JWTTTL).Unix(),
		"iss":     "matchago-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Cfg.Auth.JWTSecret))
}

// validateToken parses a bearer token and returns the anon id and guest
// flag inside it.
func (h *Handler) validateToken(tokenString string) (string, bool, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Cfg.Auth.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", false, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false, errors.New("invalid claims")
	}
	anonID, _ := claims["anon_id"].(string)
	if anonID == "" {
		return "", false, errors.New("missing anon_id claim")
	}
	guest, _ := claims["guest"].(bool)
	return anonID, guest, nil
}

// bearer extracts the token from the Authorization header, or from the
// "token" query parameter for websocket upgrades.
func bearer(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// AuthRequired validates the bearer token and stashes the identity on the
// request context.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearer(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}
		anonID, guest, err := h.validateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxUserID, anonID)
		c.Set(ctxIsGuest, guest)
		c.Next()
	}
}

// GetAnonID mints a fresh guest identity: a guest shell row plus a JWT
// the client presents on every later call.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID := uuid.New().String()

	if err := h.Storage.EnsureGuest(c.Request.Context(), anonID); err != nil {
		h.Log.Errorw("guest shell create failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create identity"})
		return
	}

	token, err := h.generateJWT(anonID, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}
