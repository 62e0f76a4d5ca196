package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// envelope wraps every response body.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorEnvelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Error     string            `json:"error"`
	Errors    []ValidationError `json:"errors,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

func (s *Server) respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: timestamp(s.clock.Now()),
	})
}

func (s *Server) ok(c *gin.Context, message string, data any) {
	s.respond(c, http.StatusOK, message, data)
}

func (s *Server) created(c *gin.Context, message string, data any) {
	s.respond(c, http.StatusCreated, message, data)
}
