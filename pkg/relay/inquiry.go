package relay

import (
	"strings"
	"time"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/pkg/telegram"
)

// Form is what the buyer typed into the contact dialog.
type Form struct {
	Question      string `json:"question"`
	Phone         string `json:"phone"`
	ContactMethod string `json:"contactMethod"`
}

// FormError is a validation failure shown next to the offending field.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string {
	return "relay: invalid " + e.Field + ": " + e.Message
}

// ValidateForm trims the form, defaults the contact method to WhatsApp and
// checks the required fields.
func ValidateForm(f Form) (Form, error) {
	f.Question = strings.TrimSpace(f.Question)
	f.Phone = strings.TrimSpace(f.Phone)

	method, ok := model.ParseContactMethod(strings.TrimSpace(f.ContactMethod))
	if !ok {
		return f, &FormError{Field: "contactMethod", Message: "Choose WhatsApp, Telegram or phone."}
	}
	f.ContactMethod = string(method)

	if f.Question == "" {
		return f, &FormError{Field: "question", Message: "Please ask a question about the car."}
	}
	if method == model.ContactWhatsApp && f.Phone == "" {
		return f, &FormError{Field: "phone", Message: "A phone number is required to be contacted via WhatsApp."}
	}
	return f, nil
}

// BuildInquiry assembles the relay payload for a validated form. A nil
// identity leaves every user field null.
func BuildInquiry(v model.Vehicle, identity *telegram.Identity, f Form, table money.Table, cur money.Currency, now time.Time) model.Inquiry {
	var user model.Submitter
	if identity != nil {
		user = identity.Submitter()
	}

	var phone *string
	if f.Phone != "" {
		p := f.Phone
		phone = &p
	}

	method, ok := model.ParseContactMethod(f.ContactMethod)
	if !ok {
		method = model.ContactWhatsApp
	}

	return model.Inquiry{
		Car: model.InquiryCar{
			ID:             v.ID,
			Brand:          v.Brand,
			Model:          v.Model,
			Year:           v.Year,
			Price:          v.Price,
			PriceFormatted: table.FormatPtr(v.Price, cur),
			Mileage:        v.Mileage,
			Transmission:   v.Transmission,
			Fuel:           v.FuelType,
			Category:       catalog.Classify(v),
			Link:           v.ListingURL,
		},
		User:          user,
		Question:      f.Question,
		Phone:         phone,
		ContactMethod: method,
		Timestamp:     now.UTC(),
	}
}
