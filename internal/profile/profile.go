package profile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Profile is a sparse record of client facts. A field is collected when its
// key is present with a non-nil value; the value itself is stored as-is.
type Profile map[Field]any

// Merge returns a copy of p with every non-nil value from updates applied.
// Values are not validated: a wrong-shaped value is stored rather than
// dropped, and a nil value never erases an existing one.
func Merge(p Profile, updates map[string]any) Profile {
	out := p.Clone()
	for k, v := range updates {
		if v == nil {
			continue
		}
		out[Field(k)] = v
	}
	return out
}

// Overlay returns base with every defined field of top applied on top.
func Overlay(base, top Profile) Profile {
	out := base.Clone()
	for k, v := range top {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy. A nil profile clones to an empty one.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether f is present.
func (p Profile) Has(f Field) bool {
	v, ok := p[f]
	return ok && v != nil
}

// HasAny reports whether at least one of fields is present.
func (p Profile) HasAny(fields ...Field) bool {
	for _, f := range fields {
		if p.Has(f) {
			return true
		}
	}
	return false
}

// Collected returns the known fields present in p, in schema order.
func (p Profile) Collected() []Field {
	var out []Field
	for _, f := range Schema {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// HasEmail reports whether a non-blank email is present.
func (p Profile) HasEmail() bool {
	s, ok := p.String(FieldEmail)
	return ok && s != ""
}

// HasPhone reports whether a non-blank phone is present.
func (p Profile) HasPhone() bool {
	s, ok := p.String(FieldPhone)
	return ok && s != ""
}

// HasContact reports whether the client left an email or a phone.
func (p Profile) HasContact() bool {
	return p.HasEmail() || p.HasPhone()
}

// String returns the field as trimmed text. Numbers are formatted without
// exponent so a phone sent as a JSON number still reads back as digits.
func (p Profile) String(f Field) (string, bool) {
	v, ok := p[f]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Float returns the field as a number when it can be read as one.
func (p Profile) Float(f Field) (float64, bool) {
	v, ok := p[f]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// Int returns the field rounded to the nearest integer.
func (p Profile) Int(f Field) (int, bool) {
	n, ok := p.Float(f)
	if !ok {
		return 0, false
	}
	return int(math.Round(n)), true
}

// TotalIncome returns the household net monthly income: the explicit total
// when known, otherwise client plus partner income.
func (p Profile) TotalIncome() (float64, bool) {
	if total, ok := p.Float(FieldTotalMonthlyIncome); ok && total > 0 {
		return total, true
	}
	income, ok := p.Float(FieldMonthlyIncome)
	if !ok {
		return 0, false
	}
	if partner, ok := p.Float(FieldPartnerIncome); ok {
		income += partner
	}
	return income, true
}

// Touch returns p with the engine metadata updated for a turn at now.
// firstSeenAt is only written once.
func Touch(p Profile, now time.Time, messageCount int) Profile {
	out := p.Clone()
	stamp := now.UTC().Format(time.RFC3339)
	if !out.Has(FieldFirstSeenAt) {
		out[FieldFirstSeenAt] = stamp
	}
	out[FieldLastSeenAt] = stamp
	out[FieldMessageCount] = messageCount
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		return parseNumber(t)
	default:
		return 0, false
	}
}

var numberNoise = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"Kč", "",
	"kč", "",
	"CZK", "",
	"%", "",
	"_", "",
)

// parseNumber reads amounts the way clients type them: "5 000 000 Kč",
// "4,5", "1.2e6".
func parseNumber(s string) (float64, bool) {
	s = numberNoise.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
