package domain

import "encoding/json"

// RawHotel mirrors one element of the GraphQL hotelList payload. Every field
// except the id is optional; defaulting happens in the normalizer, not here.
type RawHotel struct {
	ID           json.Number `json:"id"` // tolerates numeric and string ids
	RefCode      string      `json:"refCode"`
	Name         string      `json:"name"`
	BusinessName string      `json:"businessName"`

	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	Address3 string `json:"address3"`
	Address4 string `json:"address4"`
	Zip      string `json:"zip"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Email    string `json:"email"`

	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	DistanceAirport *float64 `json:"distanceAirport"`
	DistanceRail    *float64 `json:"distanceTrainStation"`
	Rating          *float64 `json:"rating"`

	// MaxCapacity is the API's own figure; RoomsCount counts bedrooms, not
	// function rooms, and must never feed meeting_room_count.
	MaxCapacity *int `json:"maxCapacity"`
	RoomsCount  *int `json:"roomsCount"`

	Texts             []RawText             `json:"texts"`
	Attributes        []RawAttribute        `json:"attributes"`
	MeetingRooms      []RawMeetingRoom      `json:"meetingRooms"`
	CancellationRules []RawCancellationRule `json:"cancellationRules"`
	Media             []RawMedium           `json:"medias"`
}

type RawText struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Details  string `json:"details"`
}

type RawAttribute struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type RawMeetingRoom struct {
	Name               string       `json:"name"`
	Area               *float64     `json:"area"`
	CapacityTheater    *int         `json:"capacityTheater"`
	CapacityParliament *int         `json:"capacityParliament"`
	CapacityBanquet    *int         `json:"capacityBanquet"`
	CapacityCocktail   *int         `json:"capacityCocktail"`
	CapacityUForm      *int         `json:"capacityUForm"`
	CapacityBlock      *int         `json:"capacityBlock"`
	CapacityCircle     *int         `json:"capacityCircle"`
	Facility           *RawFacility `json:"facility"`
}

type RawFacility struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

type RawCancellationRule struct {
	DaysBefore *int     `json:"daysBefore"`
	Percentage *float64 `json:"percentage"`
	Terms      string   `json:"terms"`
}

type RawMedium struct {
	ID         json.Number `json:"id"`
	Name       string      `json:"name"`
	MimeType   string      `json:"mimeType"`
	Width      *int        `json:"width"`
	Height     *int        `json:"height"`
	URL        string      `json:"url"`
	PreviewURL string      `json:"previewUrl"`
}
