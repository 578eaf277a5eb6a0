// Package record turns raw spreadsheet rows into canonical contact
// records. Normalization happens exactly once per row; downstream fill
// logic never branches on absent fields because every recognized field is
// defaulted to an empty string.
package record

import (
	"fmt"
	"strings"

	"formrunner/internal/catalog"
	"formrunner/internal/form"
)

// ValidationError marks a row that can never be attempted. Such rows are
// skipped, not retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: field %q %s", e.Field, e.Reason)
}

// ContactRecord is the canonical per-site input. Immutable after
// normalization.
type ContactRecord struct {
	Website   string `json:"website"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Company   string `json:"company"`
	JobTitle  string `json:"jobTitle"`
	Country   string `json:"country"`
	City      string `json:"city"`
	State     string `json:"state"`
}

// Column synonyms, all compared after lower-casing and stripping
// separators, so "First Name", "first_name" and "fname" land on the same
// field.
var columnSynonyms = map[string]string{
	"website": "website", "url": "website", "site": "website", "webpage": "website",
	"name": "name", "fullname": "name", "contactname": "name",
	"firstname": "firstName", "fname": "firstName", "givenname": "firstName",
	"lastname": "lastName", "lname": "lastName", "surname": "lastName", "familyname": "lastName",
	"email": "email", "emailaddress": "email", "mail": "email",
	"phone": "phone", "phonenumber": "phone", "tel": "phone", "telephone": "phone", "mobile": "phone",
	"message": "message", "comment": "message", "enquiry": "message", "inquiry": "message",
	"company": "company", "organization": "company", "organisation": "company", "business": "company",
	"jobtitle": "jobTitle", "job": "jobTitle", "position": "jobTitle", "designation": "jobTitle",
	"country": "country",
	"city":    "city", "town": "city",
	"state": "state", "province": "state", "region": "state",
}

func canonicalColumn(raw string) (string, bool) {
	key := strings.ToLower(raw)
	key = strings.NewReplacer(" ", "", "-", "", "_", "", ".", "").Replace(key)
	field, ok := columnSynonyms[key]
	return field, ok
}

// Normalize builds a ContactRecord from one raw row. The website field is
// required and must be an absolute http(s) URL; everything else defaults
// to "". When discrete name fields are absent but a combined name is
// present, it is split on the first whitespace run.
func Normalize(raw map[string]string) (ContactRecord, error) {
	fields := map[string]string{}
	for col, val := range raw {
		field, ok := canonicalColumn(col)
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		// First non-empty occurrence wins so duplicate synonym columns
		// stay deterministic over map iteration only when values agree;
		// prefer the already-set value.
		if _, exists := fields[field]; !exists {
			fields[field] = val
		}
	}

	website := fields["website"]
	if website == "" {
		return ContactRecord{}, &ValidationError{Field: "website", Reason: "is required"}
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		return ContactRecord{}, &ValidationError{Field: "website", Reason: "must be an absolute http(s) URL"}
	}

	rec := ContactRecord{
		Website:   website,
		FirstName: fields["firstName"],
		LastName:  fields["lastName"],
		Email:     fields["email"],
		Phone:     fields["phone"],
		Message:   fields["message"],
		Company:   fields["company"],
		JobTitle:  fields["jobTitle"],
		Country:   fields["country"],
		City:      fields["city"],
		State:     fields["state"],
	}

	if rec.FirstName == "" && rec.LastName == "" {
		if name := fields["name"]; name != "" {
			rec.FirstName, rec.LastName = SplitName(name)
		}
	}
	return rec, nil
}

// SplitName splits a combined name on the first whitespace run. A single
// token populates only the first name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// FullName joins the name parts for full-name controls.
func (r ContactRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// ValueFor resolves the value to fill for a classified kind: the record's
// own field first, then the catalog default for that kind.
func (r ContactRecord) ValueFor(kind form.Kind, cat *catalog.Catalog) string {
	var v string
	switch kind {
	case form.KindFirstName:
		v = r.FirstName
	case form.KindLastName:
		v = r.LastName
	case form.KindFullName:
		v = r.FullName()
	case form.KindEmail:
		v = r.Email
	case form.KindPhone:
		v = r.Phone
	case form.KindCompany:
		v = r.Company
	case form.KindJobTitle:
		v = r.JobTitle
	case form.KindCountry:
		v = r.Country
	case form.KindCity:
		v = r.City
	case form.KindState:
		v = r.State
	case form.KindMessage:
		v = r.Message
	case form.KindWebsite:
		v = r.Website
	}
	if v != "" {
		return v
	}
	if cat != nil {
		return cat.DefaultFor(string(kind))
	}
	return ""
}
