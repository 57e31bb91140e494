package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/models"
)

// Runner executes an arbitrary extraction spec.
type Runner interface {
	Run(ctx context.Context, spec models.ExtractionSpec, params map[string]string) models.Envelope
}

// ExtractRequest is the body of POST /v1/extract.
type ExtractRequest struct {
	Spec models.ExtractionSpec `json:"spec"`

	// Params fill "{name}" placeholders in the spec's URL template.
	Params map[string]string `json:"params,omitempty"`
}

// Extract returns a handler for POST /v1/extract.
//
// The body is validated by gin binding; selectors and field keys are checked
// by the pipeline before a session is acquired.
func Extract(r Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond(c, models.ErrorEnvelope(models.ErrCodeInvalidInput, err.Error()))
			return
		}
		respond(c, r.Run(c.Request.Context(), req.Spec, req.Params))
	}
}
