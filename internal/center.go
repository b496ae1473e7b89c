package tourhub

import "time"

// Notification is a message shown in the command center.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// TimeSlot is a bookable meeting slot.
type TimeSlot struct {
	// ID is "<date>-<time>".
	ID        string `json:"id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // e.g. "09:00 AM"
	Available bool   `json:"available"`
}

// SlotTimes are the meeting times offered on every day.
var SlotTimes = []string{"09:00 AM", "10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"}

// SlotDays is how many days ahead availability is generated for.
const SlotDays = 7

// BookMeetingInput requests a meeting in a given slot.
type BookMeetingInput struct {
	SlotID string `json:"slotId" validate:"required"`
	Date   string `json:"date" validate:"required"`
	Time   string `json:"time" validate:"required"`
}

// BookMeetingResult confirms a booking.
type BookMeetingResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConfirmationID string `json:"confirmationId"`
}

// ProfileInput updates the caller's profile.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

// ProfileResult echoes the updated profile.
type ProfileResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    ProfileInput `json:"data"`
}

// ResetPasswordInput requests a password reset email.
type ResetPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// MessageResult is a mutation acknowledgement carrying a message.
type MessageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Product types that can be ordered.
const (
	ProductVirtualTour = "360 Virtual Tour"
	ProductPhotoShoot  = "Photo Shoot"
	ProductVideoShoot  = "Video Shoot"
)

// OrderInput places an order for a shoot.
type OrderInput struct {
	ProductType    string `json:"productType" validate:"required,oneof='360 Virtual Tour' 'Photo Shoot' 'Video Shoot'"`
	NumberOfImages *int   `json:"numberOfImages,omitempty" validate:"omitempty,gt=0"`
	ShootDate      string `json:"shootDate,omitempty"`
	Comments       string `json:"comments,omitempty"`
}

// OrderResult confirms a submitted order.
type OrderResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	OrderID string     `json:"orderId"`
	Data    OrderInput `json:"data"`
}

// Greeting is the payload of the health probe.
type Greeting struct {
	Hello string    `json:"hello"`
	Date  time.Time `json:"date"`
}

// GreetingInput names who to greet.
type GreetingInput struct {
	Name string `json:"name,omitempty"`
}
