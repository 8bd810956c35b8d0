package models

import "encoding/json"

// User is the remote customer record served by the backend API.
type User struct {
	ID                  string          `json:"_id,omitempty"`
	FirstName           string          `json:"first_name,omitempty"`
	LastName            string          `json:"last_name,omitempty"`
	Name                string          `json:"name,omitempty"`
	Contact             string          `json:"contact"`
	Email               string          `json:"email,omitempty"`
	ImageUploaded       bool            `json:"image_uploaded"`
	Prescribed          json.RawMessage `json:"prescribed,omitempty"`
	Concerns            []string        `json:"concerns,omitempty"`
	SkinIssues          []string        `json:"skin_issues,omitempty"`
	Addresses           []Address       `json:"addresses,omitempty"`
	ShopifyUserID       string          `json:"shopify_user_id,omitempty"`
	OnboardingCompleted *bool           `json:"onboardingCompleted,omitempty"`
}

// DisplayName prefers the explicit name parts over the free-form name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	if full != "" {
		return full
	}
	return u.Name
}

// Address is a shipping address captured during onboarding.
type Address struct {
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	Landmark  string `json:"landmark,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// UserUpdate is the partial body sent to PATCH /update-user/{contact}.
// Nil fields are left untouched by the backend.
type UserUpdate struct {
	FirstName  *string   `json:"first_name,omitempty"`
	LastName   *string   `json:"last_name,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Concerns   []string  `json:"concerns,omitempty"`
	SkinIssues []string  `json:"skin_issues,omitempty"`
	Addresses  []Address `json:"addresses,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Concerns == nil && u.SkinIssues == nil && u.Addresses == nil
}
