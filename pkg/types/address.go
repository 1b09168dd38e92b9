package types

import "strings"

// Address is the shipping address embedded in a user profile.
type Address struct {
	HNo     string `json:"hNo,omitempty"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country,omitempty"`
}

// Normalized returns a copy with surrounding whitespace trimmed from every field.
func (a Address) Normalized() Address {
	return Address{
		HNo:     strings.TrimSpace(a.HNo),
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// Profile is the commerce user profile with its saved address.
type Profile struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// SavedAddress returns the profile address or the zero value.
func (p Profile) SavedAddress() Address {
	if p.Address == nil {
		return Address{}
	}
	return *p.Address
}
