package browser

import (
	"encoding/json"
	"fmt"
	"sort"

	"formrunner/internal/form"
)

// decodeControls round-trips the Evaluate result through JSON into the
// typed control set.
func decodeControls(val interface{}) ([]form.Control, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("marshal control scan: %w", err)
	}
	var ctrls []form.Control
	if err := json.Unmarshal(data, &ctrls); err != nil {
		return nil, fmt.Errorf("decode control scan: %w", err)
	}
	return ctrls, nil
}

// GroupChoices collapses radio inputs sharing a name into one control
// whose options carry each input's value and label. Checkboxes stay
// individual; text-like controls pass through untouched. Order follows
// first appearance in the document.
func GroupChoices(ctrls []form.Control) []form.Control {
	groups := map[string][]form.Control{}
	order := []form.Control{}
	for _, ctrl := range ctrls {
		if ctrl.Type == form.ControlRadio && ctrl.Name != "" {
			if _, seen := groups[ctrl.Name]; !seen {
				placeholder := ctrl
				order = append(order, placeholder)
			}
			groups[ctrl.Name] = append(groups[ctrl.Name], ctrl)
			continue
		}
		order = append(order, ctrl)
	}

	out := make([]form.Control, 0, len(order))
	for _, ctrl := range order {
		if ctrl.Type == form.ControlRadio && ctrl.Name != "" {
			members := groups[ctrl.Name]
			sort.SliceStable(members, func(i, j int) bool { return members[i].Index < members[j].Index })
			group := members[0]
			group.Options = make([]form.Option, 0, len(members))
			required := false
			for i, m := range members {
				text := m.Label
				if text == "" {
					text = m.Value
				}
				group.Options = append(group.Options, form.Option{Value: m.Value, Text: text, Index: i})
				required = required || m.Required
			}
			group.Required = required
			out = append(out, group)
			continue
		}
		if ctrl.Type == form.ControlCheckbox && len(ctrl.Options) == 0 {
			text := ctrl.Label
			if text == "" {
				text = ctrl.Value
			}
			ctrl.Options = []form.Option{{Value: ctrl.Value, Text: text, Index: 0}}
		}
		out = append(out, ctrl)
	}
	return out
}

// RadioSelector resolves the selector for one option of a grouped radio
// control.
func RadioSelector(group form.Control, opt form.Option) string {
	if group.Name == "" {
		return group.Selector
	}
	return fmt.Sprintf(`input[type="radio"][name=%q][value=%q]`, group.Name, opt.Value)
}
