// Package form holds the shared vocabulary of the engine: the control
// variant resolved from the live page, the semantic field kinds, and the
// per-control fill outcome.
package form

import "strings"

// ControlType is the interaction category of a form control.
type ControlType string

const (
	ControlText     ControlType = "text"
	ControlEmail    ControlType = "email"
	ControlTel      ControlType = "tel"
	ControlTextarea ControlType = "textarea"
	ControlSelect   ControlType = "select"
	ControlRadio    ControlType = "radio"
	ControlCheckbox ControlType = "checkbox"
)

// Kind is the semantic category a control is believed to represent.
type Kind string

const (
	KindFirstName Kind = "first-name"
	KindLastName  Kind = "last-name"
	KindFullName  Kind = "full-name"
	KindEmail     Kind = "email"
	KindPhone     Kind = "phone"
	KindCompany   Kind = "company"
	KindJobTitle  Kind = "job-title"
	KindCountry   Kind = "country"
	KindCity      Kind = "city"
	KindState     Kind = "state"
	KindSubject   Kind = "subject"
	KindWebsite   Kind = "website"
	KindAddress   Kind = "address"
	KindMessage   Kind = "message"
	KindUnknown   Kind = "unknown"
)

// ParseKind maps a catalog kind string to a Kind. Unrecognized strings
// yield KindUnknown so a stale catalog cannot crash classification.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFirstName, KindLastName, KindFullName, KindEmail, KindPhone,
		KindCompany, KindJobTitle, KindCountry, KindCity, KindState,
		KindSubject, KindWebsite, KindAddress, KindMessage:
		return Kind(strings.ToLower(strings.TrimSpace(s)))
	default:
		return KindUnknown
	}
}

// Option is one choice of a select element or radio/checkbox group.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// Control is an ownership-free reference into the live page. It is
// re-resolved fresh on every attempt because retries reload the page.
type Control struct {
	Index       int         `json:"index"`
	Type        ControlType `json:"type"`
	Name        string      `json:"name"`
	ID          string      `json:"id"`
	Placeholder string      `json:"placeholder"`
	AriaLabel   string      `json:"ariaLabel"`
	Label       string      `json:"label"`
	Value       string      `json:"value"`
	Required    bool        `json:"required"`
	Selector    string      `json:"selector"`
	Options     []Option    `json:"options,omitempty"`
}

// Haystack returns the lower-cased attribute text the keyword classifier
// searches. Label text comes last so explicit attributes win ties.
func (c Control) Haystack() string {
	return strings.ToLower(strings.Join([]string{c.Name, c.ID, c.Placeholder, c.AriaLabel, c.Label}, " "))
}

// Status is the terminal state of one fill dispatch.
type Status string

const (
	StatusFilled  Status = "filled"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome records one fill dispatch. Appended to the attempt's fill log
// and never mutated afterwards.
type Outcome struct {
	Website string      `json:"website,omitempty"`
	Control ControlType `json:"control"`
	Kind    Kind        `json:"kind"`
	Value   string      `json:"value,omitempty"`
	Status  Status      `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}
