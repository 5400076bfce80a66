package transcript

import (
	"encoding/json"
	"regexp"

	"github.com/lukasbauer/hypoteka/internal/profile"
)

// The address picker in the chat UI appends the geocoded selection to the
// user message as [ADDRESS_DATA]{...}[/ADDRESS_DATA].
var addressPayloadRe = regexp.MustCompile(`(?s)\[ADDRESS_DATA\](.*?)\[/ADDRESS_DATA\]`)

// addressKeys maps payload keys to profile fields. When two keys map to the
// same field the later entry wins.
var addressKeys = []struct {
	key   string
	field profile.Field
}{
	{"address", profile.FieldPropertyAddress},
	{"city", profile.FieldPropertyCity},
	{"zip", profile.FieldPropertyPostalCode},
	{"postalCode", profile.FieldPropertyPostalCode},
	{"lat", profile.FieldPropertyLat},
	{"lon", profile.FieldPropertyLng},
	{"lng", profile.FieldPropertyLng},
	{"propertyType", profile.FieldPropertyType},
}

// ParseAddressPayload extracts profile fields from the last parseable
// address payload in text. It reports false when there is none.
func ParseAddressPayload(text string) (map[string]any, bool) {
	matches := addressPayloadRe.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		var raw map[string]any
		if err := json.Unmarshal([]byte(matches[i][1]), &raw); err != nil {
			continue
		}
		out := make(map[string]any)
		for _, ak := range addressKeys {
			if v, ok := raw[ak.key]; ok && v != nil {
				out[string(ak.field)] = v
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}
