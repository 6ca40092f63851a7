package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a sentinel error with the status and client message it
// should produce.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// resolve walks cases in order and returns the first match, so callers can
// order cases from most to least specific.
func resolve(err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) (int, string) {
	for _, cs := range cases {
		if cs.Err != nil && errors.Is(err, cs.Err) {
			return cs.Status, cs.Message
		}
	}
	return fallbackStatus, fallbackMessage
}

// RespondWithMappedError translates err into a JSON error response using the
// supplied case table, with a fallback for unmapped faults.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	status, message := resolve(err, cases, fallbackStatus, fallbackMessage)
	c.JSON(status, NewErrorResponse(c, message))
}
