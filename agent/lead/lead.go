// Package lead validates captured leads and hands confirmed ones to a sink.
package lead

import (
	"net/mail"
	"regexp"
	"strings"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
)

const (
	PreferenceEmail     = "Email"
	PreferenceTelephone = "Telephone"
)

// RequiredFields are the lead fields that must be present before confirmation.
var RequiredFields = []string{
	"first_name",
	"last_name",
	"zip_code",
	"email",
	"contact_preference",
	"vehicle_model",
}

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Normalize trims fields and canonicalises the contact preference.
func Normalize(l envelopex.LeadCapture) envelopex.LeadCapture {
	l.FirstName = strings.TrimSpace(l.FirstName)
	l.LastName = strings.TrimSpace(l.LastName)
	l.VehicleModel = strings.TrimSpace(l.VehicleModel)
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.PhoneNumber = strings.TrimSpace(l.PhoneNumber)
	l.ZipCode = strings.TrimSpace(l.ZipCode)
	l.Notes = strings.TrimSpace(l.Notes)
	l.DealerSummary = strings.TrimSpace(l.DealerSummary)

	switch strings.ToLower(strings.TrimSpace(l.ContactPreference)) {
	case "email", "e-mail":
		l.ContactPreference = PreferenceEmail
	case "telephone", "phone", "call", "text":
		l.ContactPreference = PreferenceTelephone
	default:
		l.ContactPreference = strings.TrimSpace(l.ContactPreference)
	}
	return l
}

// Missing lists required fields that are empty or invalid, in RequiredFields order.
func Missing(l envelopex.LeadCapture) []string {
	var out []string
	for _, f := range RequiredFields {
		if !fieldValid(l, f) {
			out = append(out, f)
		}
	}
	if l.ContactPreference == PreferenceTelephone && l.PhoneNumber == "" {
		out = append(out, "phone_number")
	}
	return out
}

func fieldValid(l envelopex.LeadCapture, field string) bool {
	switch field {
	case "first_name":
		return l.FirstName != ""
	case "last_name":
		return l.LastName != ""
	case "zip_code":
		return zipPattern.MatchString(l.ZipCode)
	case "email":
		if l.Email == "" {
			return false
		}
		_, err := mail.ParseAddress(l.Email)
		return err == nil
	case "contact_preference":
		return l.ContactPreference == PreferenceEmail || l.ContactPreference == PreferenceTelephone
	case "vehicle_model":
		return l.VehicleModel != ""
	default:
		return true
	}
}

// Merge fills empty fields of base from update. Later turns refine earlier answers.
func Merge(base, update envelopex.LeadCapture) envelopex.LeadCapture {
	pick := func(a, b string) string {
		if strings.TrimSpace(b) != "" {
			return b
		}
		return a
	}
	base.FirstName = pick(base.FirstName, update.FirstName)
	base.LastName = pick(base.LastName, update.LastName)
	base.VehicleModel = pick(base.VehicleModel, update.VehicleModel)
	base.Email = pick(base.Email, update.Email)
	base.PhoneNumber = pick(base.PhoneNumber, update.PhoneNumber)
	base.ZipCode = pick(base.ZipCode, update.ZipCode)
	base.ContactPreference = pick(base.ContactPreference, update.ContactPreference)
	base.DealerSummary = pick(base.DealerSummary, update.DealerSummary)
	base.Notes = pick(base.Notes, update.Notes)
	if update.VehicleYear != 0 {
		base.VehicleYear = update.VehicleYear
	}
	return base
}
