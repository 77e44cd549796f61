package domain

import "time"

type HotelStatus string

const (
	StatusActive    HotelStatus = "active"
	StatusWithdrawn HotelStatus = "withdrawn"
	StatusTrashed   HotelStatus = "trashed"
)

// HotelRecord is the persisted, normalized form of one hotel. JSON sub-objects
// (texts, attributes, meeting rooms, cancellation rules, media) are kept as
// canonically encoded blobs so they can be compared byte-wise.
type HotelRecord struct {
	RowID         int64
	ExternalID    string // primary natural key; always a string, never numeric
	ReferenceCode string // secondary natural key; may be empty

	Title        string
	BusinessName string

	Address1    string
	Address2    string
	Address3    string
	Address4    string
	Zip         string
	City        string
	Country     string
	Email       string
	FullAddress string

	Latitude        float64
	Longitude       float64
	DistanceAirport float64
	DistanceRail    float64

	Rating float64
	Stars  float64

	Capacity         int
	MeetingRoomCount int

	Texts             []byte
	Attributes        []byte
	Amenities         []byte
	MeetingRooms      []byte
	CancellationRules []byte
	Media             []byte

	Status    HotelStatus
	UpdatedAt time.Time
}

// FieldKind drives type-aware change detection.
type FieldKind int

const (
	KindString FieldKind = iota
	KindFloat
	KindInt
	KindJSON
)

// FieldKinds maps every syncable field to its comparison kind. The map also
// serves as the authoritative field list: keys double as column names.
var FieldKinds = map[string]FieldKind{
	"external_id":        KindString,
	"reference_code":     KindString,
	"title":              KindString,
	"business_name":      KindString,
	"address1":           KindString,
	"address2":           KindString,
	"address3":           KindString,
	"address4":           KindString,
	"zip":                KindString,
	"city":               KindString,
	"country":            KindString,
	"email":              KindString,
	"full_address":       KindString,
	"latitude":           KindFloat,
	"longitude":          KindFloat,
	"distance_airport":   KindFloat,
	"distance_rail":      KindFloat,
	"rating":             KindFloat,
	"stars":              KindFloat,
	"capacity":           KindInt,
	"meeting_room_count": KindInt,
	"texts":              KindJSON,
	"attributes":         KindJSON,
	"amenities":          KindJSON,
	"meeting_rooms":      KindJSON,
	"cancellation_rules": KindJSON,
	"media":              KindJSON,
}

// Fields flattens the record into field-name -> value form for diffing and
// column-wise updates. JSON blobs are exposed as strings.
func (h HotelRecord) Fields() map[string]any {
	return map[string]any{
		"external_id":        h.ExternalID,
		"reference_code":     h.ReferenceCode,
		"title":              h.Title,
		"business_name":      h.BusinessName,
		"address1":           h.Address1,
		"address2":           h.Address2,
		"address3":           h.Address3,
		"address4":           h.Address4,
		"zip":                h.Zip,
		"city":               h.City,
		"country":            h.Country,
		"email":              h.Email,
		"full_address":       h.FullAddress,
		"latitude":           h.Latitude,
		"longitude":          h.Longitude,
		"distance_airport":   h.DistanceAirport,
		"distance_rail":      h.DistanceRail,
		"rating":             h.Rating,
		"stars":              h.Stars,
		"capacity":           h.Capacity,
		"meeting_room_count": h.MeetingRoomCount,
		"texts":              string(h.Texts),
		"attributes":         string(h.Attributes),
		"amenities":          string(h.Amenities),
		"meeting_rooms":      string(h.MeetingRooms),
		"cancellation_rules": string(h.CancellationRules),
		"media":              string(h.Media),
	}
}
