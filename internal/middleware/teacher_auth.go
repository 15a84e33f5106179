package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/penmark-edu/penmark-api/internal/utils"
)

// TeacherLocalKey is the fiber.Ctx locals key carrying the authenticated
// teacher id.
const TeacherLocalKey = "teacher_id"

// TeacherIdentity resolves the acting teacher for a request. A Bearer JWT is
// preferred; the X-Teacher-ID header is accepted as a fallback for trusted
// internal clients. Requests with neither are rejected.
func TeacherIdentity(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authorization := strings.TrimSpace(c.Get("Authorization")); authorization != "" {
			teacherID, err := teacherIDFromBearer(authorization, secret)
			if err != nil {
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
			}
			c.Locals(TeacherLocalKey, teacherID)
			return c.Next()
		}

		if teacherID := strings.TrimSpace(c.Get("X-Teacher-ID")); teacherID != "" {
			c.Locals(TeacherLocalKey, teacherID)
			return c.Next()
		}

		return utils.SendError(c, fiber.StatusUnauthorized, "teacher identity required")
	}
}

func teacherIDFromBearer(authorization, secret string) (string, error) {
	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		return "", fmt.Errorf("invalid authorization header")
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return "", fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	for _, key := range []string{"sub", "teacher_id"} {
		if value, ok := claims[key]; ok {
			if id, ok := value.(string); ok && strings.TrimSpace(id) != "" {
				return strings.TrimSpace(id), nil
			}
		}
	}

	return "", fmt.Errorf("token missing teacher subject")
}

// TeacherIDFromContext returns the teacher id bound to the active request.
func TeacherIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals(TeacherLocalKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
