package types

// Envelope is the body of every successful API response.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// SuccessEnvelope is what handlers write; clients decode into Envelope of a concrete type.
type SuccessEnvelope = Envelope[any]

// APIError is the body of every failed API response. Retryable tells a terminal whether the
// same request may succeed later without changes, e.g. after the database comes back.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
