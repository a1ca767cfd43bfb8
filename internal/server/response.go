package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/ingest"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondErr maps a service error onto a status and an error envelope. Details
// of internal failures stay in the log.
func respondErr(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, err)
}

func errorStatus(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case ingest.IsExtractionError(err):
		return http.StatusUnprocessableEntity, "TEXT_EXTRACTION_FAILED"
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"
	}
	return common.HTTPStatus(err)
}
