package values

type contextKey string

// ContextTracingKey is the context key under which the request tracing
// context is stored by the tracing middleware.
const ContextTracingKey = contextKey("tracing-context")

const (
	HeaderRequestID     = "X-Request-Id"
	HeaderRequestSource = "X-Request-Source"
)

// Response status strings. Handlers return one of these and the HTTP
// status code is derived from it in util.StatusCode.
const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	SystemErr      = "system-error"
	BadRequestBody = "bad-request-body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not-allowed"
	Conflict       = "conflict"
	NotFound       = "not-found"
	NotAuthorised  = "not-authorised"
	TokenExpired   = "token-expired"
)
