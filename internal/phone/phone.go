// Package phone canonicalizes user-entered UK phone numbers into E.164 form
// and validates them against a fixed prefix table.
package phone

import "strings"

// CountryCallingCode is the calling code prepended to every canonical number.
const CountryCallingCode = "44"

// trunkPrefix is the national dialing prefix stripped during normalization.
const trunkPrefix = "0"

// National significant number length bounds after normalization.
const (
	MinNationalLength = 10
	MaxNationalLength = 11
)

// mobilePrefix is the leading digit of every UK mobile number (07xxx as
// dialed, 7xxx as a national significant number).
const mobilePrefix = "7"

// areaCodePrefixes enumerates the two-digit national prefixes of the 02x
// geographic area codes (London, Southampton/Portsmouth, Coventry, Northern
// Ireland, Cardiff). This is a fixed table, not inferred from a carrier
// database.
var areaCodePrefixes = []string{"20", "23", "24", "28", "29"}

// landlinePrefix is the catch-all leading digit for 01xxx geographic numbers.
const landlinePrefix = "1"

// Normalize canonicalizes a raw user-entered number into E.164 form: it drops
// whitespace and punctuation, removes a duplicated country calling code,
// strips a single leading trunk zero, and prepends "+44". Normalize is
// idempotent; it never rejects input, validation is IsValid's job.
func Normalize(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	national := digits.String()
	if strings.HasPrefix(national, CountryCallingCode) {
		national = national[len(CountryCallingCode):]
	}
	if strings.HasPrefix(national, trunkPrefix) {
		national = national[len(trunkPrefix):]
	}
	return "+" + CountryCallingCode + national
}

// IsValid reports whether an E.164 string is an acceptable UK number. It
// fails closed: the string must carry the +44 prefix, the national
// significant number must be 10 or 11 digits, and its leading digits must
// match the registered prefix table (mobile, an enumerated 02x area code, or
// the catch-all 01xxx geographic prefix).
func IsValid(e164 string) bool {
	national, ok := strings.CutPrefix(e164, "+"+CountryCallingCode)
	if !ok {
		return false
	}
	if len(national) < MinNationalLength || len(national) > MaxNationalLength {
		return false
	}
	for _, r := range national {
		if r < '0' || r > '9' {
			return false
		}
	}
	if strings.HasPrefix(national, mobilePrefix) || strings.HasPrefix(national, landlinePrefix) {
		return true
	}
	for _, prefix := range areaCodePrefixes {
		if strings.HasPrefix(national, prefix) {
			return true
		}
	}
	return false
}
