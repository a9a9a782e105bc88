package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	"github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
)

const undecodableDetail = "This item can no longer be shown."

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// itemDetail renders a stored panel payload as readable text.
func itemDetail(kind envelopex.Kind, payload json.RawMessage) string {
	it, err := envelopex.Untagged(payload).As(kind)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("stored item does not decode")
		return undecodableDetail
	}

	switch kind {
	case envelopex.KindDealer:
		return dealerDetail(*it.Dealer)
	case envelopex.KindAccessory:
		return accessoryDetail(*it.Accessory)
	case envelopex.KindLeadCapture:
		return leadDetail(*it.LeadCapture)
	case envelopex.KindSearchResult:
		r := it.SearchResult
		return fieldList(
			"Title", r.Title,
			"Link", r.URL(),
			"Summary", r.Text(),
			"Image", r.ImageRef(),
		)
	case envelopex.KindEditedImage:
		return fieldList("Image", it.EditedImage.ImageURL)
	default:
		return undecodableDetail
	}
}

func dealerDetail(d envelopex.Dealer) string {
	distance := ""
	if d.DistanceMiles != nil {
		distance = fmt.Sprintf("%.2f mi", *d.DistanceMiles)
	}
	var b strings.Builder
	b.WriteString(fieldList(
		"Name", d.Name,
		"Address", d.Address,
		"Phone", d.Phone,
		"Distance", distance,
	))

	if len(d.Hours) > 0 {
		rows := make([][]string, 0, len(d.Hours))
		for _, day := range hourKeys(d.Hours) {
			rows = append(rows, []string{day, d.Hours[day]})
		}
		b.WriteString("\n\nHours\n")
		b.WriteString(table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Day", "Open").
			Rows(rows...).
			String())
	}

	if len(d.Inventory) > 0 {
		b.WriteString("\n\nInventory\n")
		for _, e := range d.Inventory {
			fmt.Fprintf(&b, "  · %s: %d in stock\n", strings.TrimSpace(e.Model+" "+e.Trim), e.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// hourKeys orders the week first, then anything else alphabetically.
func hourKeys(hours map[string]string) []string {
	keys := make([]string, 0, len(hours))
	for _, day := range weekdays {
		if _, ok := hours[day]; ok {
			keys = append(keys, day)
		}
	}
	var rest []string
	for k := range hours {
		if !slices.Contains(weekdays, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func accessoryDetail(a envelopex.Accessory) string {
	fits := make([]string, 0, len(a.Compatibility))
	for _, c := range a.Compatibility {
		years := make([]string, 0, len(c.Years))
		for _, y := range c.Years {
			years = append(years, strconv.Itoa(y))
		}
		fits = append(fits, strings.TrimSpace(c.Model+" "+strings.Join(years, ", ")))
	}
	return fieldList(
		"Name", a.Name,
		"Price", a.Price.String(),
		"Part number", a.PartNumber,
		"Fits", strings.Join(fits, "; "),
		"Description", a.Description,
	)
}

func leadDetail(l envelopex.LeadCapture) string {
	year := ""
	if l.VehicleYear > 0 {
		year = strconv.Itoa(l.VehicleYear)
	}
	return fieldList(
		"Name", strings.TrimSpace(l.FirstName+" "+l.LastName),
		"Vehicle", strings.TrimSpace(year+" "+l.VehicleModel),
		"Email", l.Email,
		"Phone", l.PhoneNumber,
		"ZIP code", l.ZipCode,
		"Contact by", l.ContactPreference,
		"Dealer", l.DealerSummary,
		"Notes", l.Notes,
	)
}

// fieldList renders label/value pairs, skipping empty values.
func fieldList(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			continue
		}
		fmt.Fprintf(&b, "%-12s %s\n", pairs[i]+":", pairs[i+1])
	}
	return strings.TrimRight(b.String(), "\n")
}

// galleryLines lists the images of a search section below its links.
func galleryLines(s resolver.Section) []string {
	if !s.Gallery {
		return nil
	}
	lines := []string{"  Gallery"}
	for _, it := range s.Items {
		if it.SearchResult == nil || it.SearchResult.ImageRef() == "" {
			continue
		}
		label := it.SearchResult.Title
		if label == "" {
			label = "image"
		}
		lines = append(lines, fmt.Sprintf("    ▣ %s  %s", label, it.SearchResult.ImageRef()))
	}
	return lines
}
