package transcript

import (
	"sort"

	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/tools"
)

// Result is what a transcript replay derives.
type Result struct {
	Profile profile.Profile
	// Widgets is the sorted set of tool names shown to the client.
	Widgets []string
}

// Reduce replays the whole transcript oldest to newest. It never calls out,
// never fails, and is deterministic: the same transcript always yields the
// same result. Fields follow last-occurrence-wins by transcript position.
func Reduce(msgs []Message) Result {
	p := profile.Profile{}
	shown := map[string]bool{}

	for _, m := range msgs {
		for _, ev := range m.Parts {
			if ev.ToolName == "" {
				continue
			}
			tool := tools.Lookup(ev.ToolName)
			if !tool.Internal {
				shown[tool.Name] = true
			}
			if !ev.Complete() || len(ev.Input) == 0 {
				continue
			}
			p = apply(p, tool, ev.Input)
		}
		if m.Role == RoleUser {
			if fields, ok := ParseAddressPayload(m.Text); ok {
				p = profile.Merge(p, fields)
			}
		}
	}

	return Result{Profile: p, Widgets: sortedKeys(shown)}
}

func apply(p profile.Profile, tool tools.Tool, input map[string]any) profile.Profile {
	switch tool.Kind {
	case tools.KindProfileUpdate:
		return profile.Merge(p, input)
	case tools.KindCalculation, tools.KindLeadCapture, tools.KindSpecialists:
		return profile.Merge(p, recognized(tool, input))
	case tools.KindBookkeeping, tools.KindUnknown:
		return p
	default:
		return p
	}
}

// recognized keeps the subset of input the tool is known to carry.
func recognized(tool tools.Tool, input map[string]any) map[string]any {
	if len(tool.Captures) == 0 {
		return nil
	}
	out := make(map[string]any, len(tool.Captures))
	for k, v := range input {
		if tool.CapturesField(profile.Field(k)) {
			out[k] = v
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
