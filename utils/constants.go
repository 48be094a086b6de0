// File: utils/constants.go
package utils

// Redis key prefixes.
const (
	ThreadCachePrefix  = "thread:lkg:"
	BookingCachePrefix = "booking:details:"
)

// ViewerHeader carries the acting participant id. It is an identity hint only; verifying it
// belongs to the auth service in front of this API.
const ViewerHeader = "X-User-ID"
