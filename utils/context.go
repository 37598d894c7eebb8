package utils

// ContextKey is the type used for values stored on request contexts
type ContextKey string

// Context keys shared between handlers, flows, and repositories
const (
	RequestIDKey  ContextKey = "request_id"
	IPAddressKey  ContextKey = "ip_address"
	UserAgentKey  ContextKey = "user_agent"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
