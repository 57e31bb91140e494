package models

// Envelope is the uniform success/failure wrapper returned to the API layer.
type Envelope struct {
	// OK indicates whether the pipeline completed without errors.
	OK bool `json:"ok"`

	// Data is populated only when OK is true.
	Data *EnvelopeData `json:"data,omitempty"`

	// Error is populated only when OK is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// EnvelopeData carries the extracted records.
type EnvelopeData struct {
	// Count is the number of records, set only for list results.
	Count *int `json:"count,omitempty"`

	// Records is a *Record or a []*Record.
	Records any `json:"records"`
}

// ErrorEnvelope builds a failed envelope directly, for rejections that
// happen before the pipeline runs (auth, validation, rate limiting).
func ErrorEnvelope(code, message string) Envelope {
	return Envelope{
		OK:    false,
		Error: &ErrorDetail{Code: code, Message: message},
	}
}
