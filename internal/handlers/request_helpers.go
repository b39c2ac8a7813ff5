package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
)

const requestTimeout = 10 * time.Second

// respondWithError maps err to its HTTP status. Expected outcomes go back
// verbatim; faults are logged and answered with a generic message.
func respondWithError(c *gin.Context, log *zap.Logger, route string, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"error": apperr.PublicMessage(err)}
	if code := apperr.CodeOf(err); code != "" {
		body["code"] = code
	}

	if !apperr.Expected(err) {
		fields := []zap.Field{zap.String("route", route), zap.Int("status", status), zap.Error(err)}
		if user := currentUserID(c); user != "" {
			fields = append(fields, zap.String("userId", user))
		}
		log.Error("request failed", fields...)
	}
	c.AbortWithStatusJSON(status, body)
}

// respondValidationError reports a body that could not be decoded.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"code":    apperr.CodeInvalidInput,
			"details": details,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "code": apperr.CodeInvalidInput})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
