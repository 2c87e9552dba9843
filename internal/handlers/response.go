package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/Duel-Learn-Devs/duel-learn/internal/apierr"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

// RespondError maps a service error onto the wire envelope. Errors that do
// not carry an apierr classification fall back to a 500 persistence error.
func RespondError(c *gin.Context, err error) {
  var apiErr *apierr.Error
  if !errors.As(err, &apiErr) {
    apiErr = apierr.Persistence(err)
  }
  c.JSON(apiErr.Status, ErrorEnvelope{
    Error: APIError{
      Message: apiErr.Error(),
      Code:    apiErr.Code,
    },
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
  c.JSON(http.StatusCreated, payload)
}
