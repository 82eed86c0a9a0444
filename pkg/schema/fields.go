package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/openagi/pkg/domain"
)

// Reasons shown next to each form input.
const (
	ReasonAPIKeyRequired    = "API Key is required."
	ReasonModelRequired     = "Model selection is required."
	ReasonMaxTokens         = "Max Tokens must be a positive integer."
	ReasonTemperature       = "Temperature must be between 0 and 1."
	ReasonTopK              = "Top K must be a positive integer."
	ReasonRepetitionPenalty = "Repetition Penalty must be a non-negative number."
	reasonNotANumber        = "must be a number"
	reasonNotAnInteger      = "must be an integer"
)

// ParseFloat reads the leading decimal number of raw, as a lenient form parser does:
// "0.7" and "0.7 warm" both yield 0.7. Infinities are rejected.
func ParseFloat(key, raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &ValidationError{Key: key, Reason: "required"}
	}
	v, ok := LeadingFloat(raw)
	if !ok {
		return 0, &ValidationError{Key: key, Reason: reasonNotANumber, Value: raw}
	}
	return v, nil
}

// ParseInt reads the leading base-10 integer of raw: "100.5" yields 100, "256 tokens" yields 256.
func ParseInt(key, raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &ValidationError{Key: key, Reason: "required"}
	}
	v, ok := LeadingInt(raw)
	if !ok {
		return 0, &ValidationError{Key: key, Reason: reasonNotAnInteger, Value: raw}
	}
	return v, nil
}

// ParseTemperature accepts a number in (0, 1].
func ParseTemperature(raw string) (float64, error) {
	v, err := ParseFloat(domain.FieldTemperature, raw)
	if err != nil || v <= 0 || v > 1 {
		return 0, &ValidationError{Key: domain.FieldTemperature, Reason: ReasonTemperature, Value: raw}
	}
	return v, nil
}

// ParseMaxTokens accepts an integer greater than zero.
func ParseMaxTokens(raw string) (int, error) {
	v, err := ParseInt(domain.FieldMaxTokens, raw)
	if err != nil || v <= 0 {
		return 0, &ValidationError{Key: domain.FieldMaxTokens, Reason: ReasonMaxTokens, Value: raw}
	}
	return v, nil
}

// ParseTopK accepts an integer of at least 1.
func ParseTopK(raw string) (int, error) {
	v, err := ParseInt(domain.FieldTopK, raw)
	if err != nil || v < 1 {
		return 0, &ValidationError{Key: domain.FieldTopK, Reason: ReasonTopK, Value: raw}
	}
	return v, nil
}

// ParseRepetitionPenalty accepts any number of at least 0.
func ParseRepetitionPenalty(raw string) (float64, error) {
	v, err := ParseFloat(domain.FieldRepetitionPenalty, raw)
	if err != nil || v < 0 {
		return 0, &ValidationError{Key: domain.FieldRepetitionPenalty, Reason: ReasonRepetitionPenalty, Value: raw}
	}
	return v, nil
}

// CheckAPIKey requires a key that is not blank once trimmed.
func CheckAPIKey(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Key: domain.FieldAPIKey, Reason: ReasonAPIKeyRequired}
	}
	return nil
}

// CheckModel requires a selection other than the placeholder.
func CheckModel(cfg domain.LLMConfig) error {
	if !cfg.ModelSelected() {
		return &ValidationError{Key: domain.FieldModel, Reason: ReasonModelRequired, Value: cfg.Model}
	}
	return nil
}

// LeadingInt parses the leading integer of raw the way a lenient form parser does:
// "12abc" yields 12, "3.9" yields 3. Returns false when no digits lead the string.
func LeadingInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// LeadingFloat parses the leading decimal number of raw, ignoring whatever follows it.
// "1e-1x" yields 0.1, ".5" yields 0.5. Returns false when no number leads the string or
// it is not finite.
func LeadingFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	intDigits := countDigits(s[end:])
	end += intDigits
	fracDigits := 0
	if end < len(s) && s[end] == '.' {
		fracDigits = countDigits(s[end+1:])
		if fracDigits > 0 {
			end += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '-' || s[exp] == '+') {
			exp++
		}
		if n := countDigits(s[exp:]); n > 0 {
			end = exp + n
		}
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
