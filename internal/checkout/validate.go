package checkout

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dixis/marketplace/internal/models"
)

// Greek-market formats: landline or mobile with optional +30/0030/30 prefix,
// and five-digit postal codes.
var (
	greekPhonePattern  = regexp.MustCompile(`^(\+30|0030|30)?[2-9][0-9]{8,9}$`)
	greekPostalPattern = regexp.MustCompile(`^[0-9]{5}$`)
)

// Validate is the shared validator instance. It carries the custom Greek
// format rules and is also registered with gin's binding engine at server
// startup.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// The model structs carry gin-style `binding` tags; read those here too
	// so the machine and the HTTP layer enforce identical rules.
	v.SetTagName("binding")
	RegisterGreekFormats(v)
	return v
}

// RegisterGreekFormats installs the gr_phone and gr_postal tags on v.
func RegisterGreekFormats(v *validator.Validate) {
	v.RegisterValidation("gr_phone", func(fl validator.FieldLevel) bool {
		return greekPhonePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("gr_postal", func(fl validator.FieldLevel) bool {
		return greekPostalPattern.MatchString(fl.Field().String())
	})
}

// fieldMessages maps struct fields to the inline messages the UI renders.
var fieldMessages = map[string]string{
	"FullName":    "Το ονοματεπώνυμο είναι υποχρεωτικό",
	"Phone":       "Μη έγκυρος αριθμός τηλεφώνου",
	"Email":       "Μη έγκυρη διεύθυνση email",
	"AddressLine": "Η διεύθυνση είναι υποχρεωτική",
	"City":        "Η πόλη είναι υποχρεωτική",
	"PostalCode":  "Μη έγκυρος ΤΚ (5 ψηφία)",
}

// jsonFieldNames maps struct fields to their wire names for the 422 payload.
var jsonFieldNames = map[string]string{
	"FullName":    "full_name",
	"Phone":       "phone",
	"Email":       "email",
	"AddressLine": "address_line",
	"City":        "city",
	"PostalCode":  "postal_code",
}

// ValidateAddress runs the struct rules and flattens failures into a
// field -> message map keyed by wire field names.
func ValidateAddress(addr models.Address) map[string]string {
	err := Validate.Struct(addr)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"address": err.Error()}
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := jsonFieldNames[fe.StructField()]
		if name == "" {
			name = fe.StructField()
		}
		msg := fieldMessages[fe.StructField()]
		if msg == "" {
			msg = "Μη έγκυρη τιμή"
		}
		fields[name] = msg
	}
	return fields
}
