package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a postal address used for shipping and pickup.
// City doubles as the suburb in carrier terminology.
type Address struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Normalize trims surrounding whitespace and upper-cases the country code
func (a Address) Normalize() Address {
	a.Name = strings.TrimSpace(a.Name)
	a.Company = strings.TrimSpace(a.Company)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Postcode = strings.TrimSpace(a.Postcode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.TrimSpace(a.Email)
	return a
}

// Validate checks that the fields a carrier needs are present
func (a Address) Validate() error {
	a = a.Normalize()
	var missing []string
	if a.Name == "" {
		missing = append(missing, "name")
	}
	if a.Line1 == "" {
		missing = append(missing, "line1")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.Postcode == "" {
		missing = append(missing, "postcode")
	}
	if a.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("address is missing required fields: %s", strings.Join(missing, ", "))
	}
	if len(a.Country) > 2 && len(a.Country) != 3 {
		return fmt.Errorf("country must be an ISO country code, got %q", a.Country)
	}
	return nil
}

// IsEmpty returns true if no addressable field is set
func (a Address) IsEmpty() bool {
	return a.Line1 == "" && a.City == "" && a.Postcode == "" && a.Country == ""
}

// String returns a single-line rendering of the address
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.Postcode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Value implements driver.Valuer for JSON column storage
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON column storage
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}

	return json.Unmarshal(data, a)
}
