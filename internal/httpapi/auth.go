package httpapi

import "crypto/subtle"

// checkSecret reports whether provided matches configured, in constant
// time. An empty configured secret never matches — that case is a
// configuration error, handled separately by the caller as a 500.
func checkSecret(provided, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}
