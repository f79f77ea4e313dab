package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all services.
	ServiceCommon = 0

	// ServiceGateway is for the chat gateway (chat, documents, scrape).
	ServiceGateway = 21
)

// Category codes (BB)
const (
	CategorySuccess   = 0
	CategoryRequest   = 1  // 400
	CategoryResource  = 4  // 404
	CategoryRateLimit = 6  // 429
	CategoryInternal  = 7  // 500
	CategoryDatabase  = 8  // 500
	CategoryCache     = 9  // 500
	CategoryNetwork   = 10 // 502/503
	CategoryTimeout   = 11 // 504
	CategoryConfig    = 12 // 500
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// IsClientError checks if the error code indicates a client error (4xx).
func IsClientError(code int) bool {
	_, category, _ := ParseCode(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}
