package app

import (
	"bytes"
	"encoding/json"
	"strings"

	"seminargo/internal/domain"
)

// starsByCategory maps classification attribute codes to star values,
// including the ".5" superior tiers. First matching attribute wins.
var starsByCategory = map[string]float64{
	"CATEGORY_ONE_STAR":            1,
	"CATEGORY_TWO_STAR":            2,
	"CATEGORY_THREE_STAR":          3,
	"CATEGORY_THREE_STAR_SUPERIOR": 3.5,
	"CATEGORY_FOUR_STAR":           4,
	"CATEGORY_FOUR_STAR_SUPERIOR":  4.5,
	"CATEGORY_FIVE_STAR":           5,
	"CATEGORY_FIVE_STAR_SUPERIOR":  5.5,
}

var amenityBuckets = []string{"room", "design", "activity", "wellness", "facility", "ecolabel"}

type normText struct {
	Language string `json:"language"`
	Details  string `json:"details"`
}

type normAttribute struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type normFacility struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type normRoom struct {
	Name       string         `json:"name"`
	Area       float64        `json:"area,omitempty"`
	Capacities map[string]int `json:"capacities"`
	Facility   *normFacility  `json:"facility,omitempty"`
}

type normRule struct {
	DaysBefore int     `json:"days_before"`
	Percentage float64 `json:"percentage"`
	Terms      string  `json:"terms,omitempty"`
}

type normMedium struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Normalize maps one raw API hotel into its persisted form. Pure function:
// all defaulting for absent optional fields happens here, nowhere else.
func Normalize(raw domain.RawHotel) domain.HotelRecord {
	rec := domain.HotelRecord{
		ExternalID:    raw.ID.String(),
		ReferenceCode: strings.TrimSpace(raw.RefCode),
		Title:         strings.TrimSpace(raw.Name),
		BusinessName:  strings.TrimSpace(raw.BusinessName),
		Address1:      strings.TrimSpace(raw.Address1),
		Address2:      strings.TrimSpace(raw.Address2),
		Address3:      strings.TrimSpace(raw.Address3),
		Address4:      strings.TrimSpace(raw.Address4),
		Zip:           strings.TrimSpace(raw.Zip),
		City:          strings.TrimSpace(raw.City),
		Country:       strings.TrimSpace(raw.Country),
		Email:         strings.TrimSpace(raw.Email),

		Latitude:        deref(raw.Latitude),
		Longitude:       deref(raw.Longitude),
		DistanceAirport: deref(raw.DistanceAirport),
		DistanceRail:    deref(raw.DistanceRail),
		Rating:          deref(raw.Rating),

		Status: domain.StatusActive,
	}

	rec.FullAddress = assembleAddress(rec)
	rec.Stars = extractStars(raw.Attributes)
	rec.Capacity = deriveCapacity(raw)

	// Function-room count is the length of the meeting-rooms list. The API's
	// roomsCount field counts bedrooms and must not be used here.
	rec.MeetingRoomCount = len(raw.MeetingRooms)

	rec.Texts = marshalCanonical(selectTexts(raw.Texts))
	rec.Attributes = marshalCanonical(normalizeAttributes(raw.Attributes))
	rec.Amenities = marshalCanonical(categorizeAmenities(raw.Attributes))
	rec.MeetingRooms = marshalCanonical(normalizeRooms(raw.MeetingRooms))
	rec.CancellationRules = marshalCanonical(normalizeRules(raw.CancellationRules))
	rec.Media = marshalCanonical(normalizeMedia(raw.Media))

	return rec
}

// extractStars scans the attribute codes against the fixed category table;
// the first match wins, no match means 0.
func extractStars(attrs []domain.RawAttribute) float64 {
	for _, a := range attrs {
		if s, ok := starsByCategory[a.Code]; ok {
			return s
		}
	}
	return 0
}

// deriveCapacity prefers the API-provided figure; when that is absent or 0 it
// falls back to the maximum per-layout capacity across all meeting rooms.
func deriveCapacity(raw domain.RawHotel) int {
	if raw.MaxCapacity != nil && *raw.MaxCapacity > 0 {
		return *raw.MaxCapacity
	}
	maxCap := 0
	for _, r := range raw.MeetingRooms {
		for _, c := range []*int{
			r.CapacityTheater, r.CapacityParliament, r.CapacityBanquet,
			r.CapacityCocktail, r.CapacityUForm, r.CapacityBlock, r.CapacityCircle,
		} {
			if c != nil && *c > maxCap {
				maxCap = *c
			}
		}
	}
	return maxCap
}

// selectTexts picks one text per type: the German entry when present,
// otherwise the first entry of that type.
func selectTexts(texts []domain.RawText) map[string]normText {
	out := make(map[string]normText, len(texts))
	for _, t := range texts {
		if t.Type == "" || strings.TrimSpace(t.Details) == "" {
			continue
		}
		cur, seen := out[t.Type]
		lang := strings.ToLower(t.Language)
		if !seen || (lang == "de" && cur.Language != "de") {
			out[t.Type] = normText{Language: lang, Details: t.Details}
		}
	}
	return out
}

func normalizeAttributes(attrs []domain.RawAttribute) []normAttribute {
	out := make([]normAttribute, 0, len(attrs))
	for _, a := range attrs {
		if a.Code == "" {
			continue
		}
		out = append(out, normAttribute{Code: a.Code, Name: a.Name, Category: a.Category})
	}
	return out
}

// categorizeAmenities buckets attribute names into the fixed amenity
// categories. The explicit category field wins; otherwise the code prefix
// decides, with "facility" as the catch-all. Classification codes are not
// amenities and are skipped.
func categorizeAmenities(attrs []domain.RawAttribute) map[string][]string {
	out := make(map[string][]string, len(amenityBuckets))
	for _, b := range amenityBuckets {
		out[b] = []string{}
	}
	for _, a := range attrs {
		if a.Code == "" || strings.HasPrefix(a.Code, "CATEGORY_") {
			continue
		}
		name := a.Name
		if name == "" {
			name = a.Code
		}
		out[bucketFor(a)] = append(out[bucketFor(a)], name)
	}
	return out
}

func bucketFor(a domain.RawAttribute) string {
	if c := strings.ToLower(strings.TrimSpace(a.Category)); c != "" {
		for _, b := range amenityBuckets {
			if c == b {
				return b
			}
		}
	}
	switch {
	case strings.HasPrefix(a.Code, "ROOM_"):
		return "room"
	case strings.HasPrefix(a.Code, "DESIGN_"):
		return "design"
	case strings.HasPrefix(a.Code, "ACTIVITY_"):
		return "activity"
	case strings.HasPrefix(a.Code, "WELLNESS_"):
		return "wellness"
	case strings.HasPrefix(a.Code, "ECOLABEL"):
		return "ecolabel"
	default:
		return "facility"
	}
}

func normalizeRooms(rooms []domain.RawMeetingRoom) []normRoom {
	out := make([]normRoom, 0, len(rooms))
	for _, r := range rooms {
		nr := normRoom{Name: r.Name, Area: deref(r.Area), Capacities: map[string]int{}}
		for layout, c := range map[string]*int{
			"theater": r.CapacityTheater, "parliament": r.CapacityParliament,
			"banquet": r.CapacityBanquet, "cocktail": r.CapacityCocktail,
			"uform": r.CapacityUForm, "block": r.CapacityBlock, "circle": r.CapacityCircle,
		} {
			if c != nil && *c > 0 {
				nr.Capacities[layout] = *c
			}
		}
		if r.Facility != nil && r.Facility.ID.String() != "" {
			nr.Facility = &normFacility{ID: r.Facility.ID.String(), Name: r.Facility.Name}
		}
		out = append(out, nr)
	}
	return out
}

func normalizeRules(rules []domain.RawCancellationRule) []normRule {
	out := make([]normRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, normRule{
			DaysBefore: derefInt(r.DaysBefore),
			Percentage: deref(r.Percentage),
			Terms:      strings.TrimSpace(r.Terms),
		})
	}
	return out
}

func normalizeMedia(media []domain.RawMedium) []normMedium {
	out := make([]normMedium, 0, len(media))
	for _, m := range media {
		if m.URL == "" {
			continue
		}
		out = append(out, normMedium{
			ID: m.ID.String(), Name: m.Name, MimeType: m.MimeType,
			Width: derefInt(m.Width), Height: derefInt(m.Height),
			URL: m.URL, PreviewURL: m.PreviewURL,
		})
	}
	return out
}

// assembleAddress joins the non-empty address lines, then "zip city", then
// country, comma-separated.
func assembleAddress(h domain.HotelRecord) string {
	var parts []string
	for _, line := range []string{h.Address1, h.Address2, h.Address3, h.Address4} {
		if line != "" {
			parts = append(parts, line)
		}
	}
	if zc := strings.TrimSpace(h.Zip + " " + h.City); zc != "" {
		parts = append(parts, zc)
	}
	if h.Country != "" {
		parts = append(parts, h.Country)
	}
	return strings.Join(parts, ", ")
}

// marshalCanonical encodes with sorted object keys and without HTML escaping
// so re-encoding the same structure always yields identical bytes.
func marshalCanonical(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
