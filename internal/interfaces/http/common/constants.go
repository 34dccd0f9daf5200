package common

const (
	// MaxResponseRequestBody limits JSON request bodies for approve/reject endpoints.
	MaxResponseRequestBody = 1 << 20
	// DefaultResponseListLimit is applied when the dashboard omits an explicit limit.
	DefaultResponseListLimit = 50
)
