package translate

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
)

// ComponentCapabilities describes one device component: the raw vendor
// capability ids it exposes and the semantic commands those capabilities
// unlock, grouped by family.
type ComponentCapabilities struct {
	Component    string              `json:"component"`
	Capabilities []string            `json:"capabilities"`
	Commands     map[string][]string `json:"commands,omitempty"`
}

// SummarizeCapabilities walks a raw SmartThings device document and
// reports, per component, the capabilities present and which semantic
// commands they make available. Unknown capabilities are listed but
// contribute no commands.
func SummarizeCapabilities(deviceJSON json.RawMessage) []ComponentCapabilities {
	var out []ComponentCapabilities

	gjson.GetBytes(deviceJSON, "components").ForEach(func(_, component gjson.Result) bool {
		name := component.Get("id").String()
		if name == "" {
			name = DefaultComponent
		}

		var capabilities []string
		present := make(map[string]bool)
		component.Get("capabilities").ForEach(func(_, capability gjson.Result) bool {
			id := capability.Get("id").String()
			if id != "" {
				capabilities = append(capabilities, id)
				present[id] = true
			}
			return true
		})
		sort.Strings(capabilities)

		commands := make(map[string][]string)
		for family, rules := range table {
			for command, r := range rules {
				if present[r.capability] {
					commands[family] = append(commands[family], command)
				}
			}
			sort.Strings(commands[family])
		}
		if len(commands) == 0 {
			commands = nil
		}

		out = append(out, ComponentCapabilities{
			Component:    name,
			Capabilities: capabilities,
			Commands:     commands,
		})
		return true
	})

	return out
}
