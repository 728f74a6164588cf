package middleware

// Context keys used to store request and operator metadata.
const (
	ContextKeySubject   = "subject"
	ContextKeyRole      = "role"
	ContextKeyRequestID = "request_id"
)
