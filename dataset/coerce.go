package dataset

import (
	"strconv"
	"strings"
)

// missingTokens is the extended missing-value vocabulary. Matching is
// case-insensitive after whitespace trimming. Shared by ingestion, the
// quality assessor and the cleaner so all three agree on what counts as
// missing.
var missingTokens = map[string]bool{
	"nan": true, "null": true, "none": true, "na": true, "n/a": true,
	"": true, "undefined": true, "missing": true, "unknown": true,
	"#n/a": true, "#null!": true, "#div/0!": true, "#value!": true,
	"nil": true, "void": true, "empty": true,
	"-": true, "--": true, "?": true, "??": true,
}

// IsMissingToken reports whether s is a recognised missing-value
// placeholder.
func IsMissingToken(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// Boolean token tables. The accepted vocabulary is fixed here once;
// callers must not grow it ad hoc per field.
var (
	trueTokens  = map[string]bool{"yes": true, "y": true, "true": true, "t": true, "1": true}
	falseTokens = map[string]bool{"no": true, "n": true, "false": true, "f": true, "0": true}
)

// ParseBool parses boolean-like tokens ("Yes"/"1"/"true"/...) after
// trimming and lowercasing. The second return is false for anything
// outside the accepted tables.
func ParseBool(s string) (bool, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	if trueTokens[t] {
		return true, true
	}
	if falseTokens[t] {
		return false, true
	}
	return false, false
}

// ParseFloat parses a numeric string, tolerating surrounding whitespace
// and thousands separators. The second return is false when s is not a
// number; callers branch on it instead of recovering from failed
// conversions.
func ParseFloat(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", "")
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Coerce converts a raw cell string into a typed Value: missing tokens
// become the canonical marker, numeric strings become numbers, everything
// else stays a trimmed string.
func Coerce(raw string) Value {
	if IsMissingToken(raw) {
		return NA()
	}
	if f, ok := ParseFloat(raw); ok {
		return Num(f)
	}
	return Str(strings.TrimSpace(raw))
}
