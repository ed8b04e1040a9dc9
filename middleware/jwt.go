package middleware

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lms/config"
	"lms/database"
	"lms/models"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

const requestContextKey = "requestContext"

// GenerateJWT generates a JWT token for the user
func GenerateJWT(userID uint, name, role, email string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"name":   name,
		"role":   role,
		"email":  email,
		"iat":    time.Now().Unix(),                     // issued at
		"exp":    time.Now().Add(24 * time.Hour).Unix(), // expiry 24h
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	jwtSecret := []byte(config.AppConfig.JWTKey)

	return token.SignedString(jwtSecret)
}

// JWTMiddleware validates the bearer token and stores the caller's RequestContext.
// The role is read from the users table so a demoted or blocked account loses access immediately.
func JWTMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
	}
	tokenString := authHeader[len("Bearer "):]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTKey), nil
	})
	if err != nil || !token.Valid {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["userId"] == nil {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
	}
	// JWT numbers decode as float64
	userID, ok := claims["userId"].(float64)
	if !ok {
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", uint(userID), false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
		}
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load user!", nil)
	}
	if user.IsBlocked {
		return JsonResponse(c, fiber.StatusForbidden, false, "Your account is blocked!", nil)
	}

	c.Locals("userId", user.ID)
	c.Locals(requestContextKey, utils.RequestContext{UserID: user.ID, Role: user.Role})
	return c.Next()
}

// GetRequestContext returns the caller identity stored by JWTMiddleware.
func GetRequestContext(c *fiber.Ctx) (utils.RequestContext, bool) {
	rc, ok := c.Locals(requestContextKey).(utils.RequestContext)
	return rc, ok
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := GetRequestContext(c)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		for _, role := range roles {
			if rc.Role == role {
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "Access denied!", nil)
	}
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse renders a service error in the standard envelope.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong: "+err.Error(), nil)
	}

	switch appErr.Kind {
	case utils.KindValidation:
		return JsonResponse(c, fiber.StatusUnprocessableEntity, false, appErr.Message, appErr.Fields)
	case utils.KindNotFound:
		return JsonResponse(c, fiber.StatusNotFound, false, appErr.Message, nil)
	case utils.KindForbidden:
		return JsonResponse(c, fiber.StatusForbidden, false, appErr.Message, nil)
	case utils.KindConflict:
		return JsonResponse(c, fiber.StatusConflict, false, appErr.Message, nil)
	}
	log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return JsonResponse(c, fiber.StatusInternalServerError, false, appErr.Error(), nil)
}
