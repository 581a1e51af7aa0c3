package verify

import "crypto/subtle"

// Tag IDs are UID/EPC-style codes of varying length; PINs are short shared
// secrets. Both arrive pre-trimmed.
func validTagIDLength(tagID string) bool {
	return len(tagID) >= 6 && len(tagID) <= 32
}

func validPINLength(pin string) bool {
	return len(pin) >= 4 && len(pin) <= 12
}

// pinEqual compares a presented PIN against the stored one in constant time.
// Mismatched lengths short-circuit to false before any content comparison,
// and an empty stored PIN never matches. All three operations use this one
// primitive.
func pinEqual(presented, stored string) bool {
	if stored == "" || len(presented) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
