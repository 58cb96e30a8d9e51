package model

import "time"

// ContactMethod is how the buyer wants to be contacted back.
type ContactMethod string

const (
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactTelegram ContactMethod = "telegram"
	ContactPhone    ContactMethod = "phone"
)

// ParseContactMethod returns the method, defaulting to WhatsApp for empty input.
func ParseContactMethod(s string) (ContactMethod, bool) {
	switch ContactMethod(s) {
	case "":
		return ContactWhatsApp, true
	case ContactWhatsApp, ContactTelegram, ContactPhone:
		return ContactMethod(s), true
	default:
		return "", false
	}
}

// InquiryCar is the vehicle summary sent with an inquiry.
type InquiryCar struct {
	ID             string   `json:"id"`
	Brand          string   `json:"brand"`
	Model          string   `json:"model"`
	Year           *int     `json:"year"`
	Price          *float64 `json:"price"`
	PriceFormatted string   `json:"priceFormatted"`
	Mileage        *int     `json:"mileage"`
	Transmission   string   `json:"transmission"`
	Fuel           string   `json:"fuel"`
	Category       Category `json:"category"`
	Link           string   `json:"link"`
}

// Submitter identifies the platform user who sent the inquiry.
type Submitter struct {
	UserID    *int64  `json:"userId"`
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	UserLink  *string `json:"userLink"`
}

// Inquiry is the body posted to the contact relay.
type Inquiry struct {
	Car           InquiryCar    `json:"car"`
	User          Submitter     `json:"user"`
	Question      string        `json:"question"`
	Phone         *string       `json:"phone"`
	ContactMethod ContactMethod `json:"contactMethod"`
	Timestamp     time.Time     `json:"timestamp"`
}

// InquiryStatus is the delivery outcome recorded for an inquiry.
type InquiryStatus string

const (
	InquirySent   InquiryStatus = "sent"
	InquiryFailed InquiryStatus = "failed"
)

// StoredInquiry is the audit record kept for every submission attempt.
type StoredInquiry struct {
	ID            string        `json:"id"`
	CarID         string        `json:"car_id"`
	UserID        *int64        `json:"user_id,omitempty"`
	ContactMethod ContactMethod `json:"contact_method"`
	Status        InquiryStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
