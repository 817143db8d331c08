package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-orders/internal/domain"
)

// writeProblem renders a simplified RFC 7807 problem document.
func writeProblem(c *gin.Context, code int, typ, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(code, gin.H{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

func writeError(c *gin.Context, err error) {
	code, typ := http.StatusInternalServerError, "internal_error"
	switch domain.Kind(err) {
	case domain.ErrValidation:
		code, typ = http.StatusBadRequest, "validation_error"
	case domain.ErrNotFound:
		code, typ = http.StatusNotFound, "not_found"
	case domain.ErrInvalidReference:
		code, typ = http.StatusUnprocessableEntity, "invalid_reference"
	case domain.ErrItemUnavailable:
		code, typ = http.StatusConflict, "item_unavailable"
	case domain.ErrTableUnavailable:
		code, typ = http.StatusConflict, "table_unavailable"
	case domain.ErrInvalidStateTransition:
		code, typ = http.StatusConflict, "invalid_state_transition"
	case domain.ErrInvalidState:
		code, typ = http.StatusConflict, "invalid_state"
	case domain.ErrForbidden:
		code, typ = http.StatusForbidden, "forbidden"
	}
	detail := err.Error()
	if code == http.StatusInternalServerError {
		detail = "internal error"
	}
	_ = c.Error(err)
	writeProblem(c, code, typ, detail)
}

// uuidParam reads a path parameter; on failure the 400 response is already
// written.
func uuidParam(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "validation_error", key+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
