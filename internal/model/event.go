package model

import "time"

// Capacity bounds accepted when an event is created or edited.
const (
	MinEventCapacity = 1
	MaxEventCapacity = 1000
)

// Event is a scheduled talk session with a fixed number of seats.
// AvailableSeats counts seats not taken by approved or checked-in
// bookings; pending requests do not decrement it.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – display title, searchable.
//  Description    – free text shown on the event page.
//  Location       – venue name or address.
//  Date           – when the event takes place (UTC).
//  ImageURL       – optional cover image, presentation only.
//  Capacity       – total seats offered.
//  AvailableSeats – seats still free of confirmed bookings.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Event struct {
	ID             uint64    `json:"id"`              // events.id
	Title          string    `json:"title"`           // events.title
	Description    string    `json:"description"`     // events.description
	Location       string    `json:"location"`        // events.location
	Date           time.Time `json:"date"`            // events.date
	ImageURL       string    `json:"image_url"`       // events.image_url
	Capacity       int       `json:"capacity"`        // events.capacity
	AvailableSeats int       `json:"available_seats"` // events.available_seats
	CreatedAt      time.Time `json:"created_at"`      // events.created_at
	UpdatedAt      time.Time `json:"updated_at"`      // events.updated_at
}

// Speaker is a person presenting at an event. Speakers are removed
// together with their event.
type Speaker struct {
	ID        uint64    `json:"id"`         // speakers.id
	EventID   uint64    `json:"event_id"`   // speakers.event_id
	Name      string    `json:"name"`       // speakers.name
	Bio       string    `json:"bio"`        // speakers.bio
	ImageURL  string    `json:"image_url"`  // speakers.image_url
	CreatedAt time.Time `json:"created_at"` // speakers.created_at
}
