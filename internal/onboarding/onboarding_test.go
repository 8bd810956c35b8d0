package onboarding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/skinwise/internal/models"
)

func TestIsOnboarded(t *testing.T) {
	named := func() *models.User {
		return &models.User{FirstName: "Asha", Contact: "+919876543210"}
	}

	tests := []struct {
		name string
		user *models.User
		all  *models.UserData
		want bool
	}{
		{name: "no user", user: nil, want: false},
		{
			name: "prescription wins over flag",
			user: &models.User{ImageUploaded: false},
			all:  &models.UserData{Prescriptions: []models.Prescription{{ID: "p1"}}},
			want: true,
		},
		{
			name: "empty prescriptions are authoritative",
			user: &models.User{ImageUploaded: true},
			all:  &models.UserData{Prescriptions: []models.Prescription{}},
			want: false,
		},
		{
			name: "missing collection falls through to flag",
			user: &models.User{ImageUploaded: true},
			all:  &models.UserData{},
			want: true,
		},
		{name: "image uploaded", user: &models.User{ImageUploaded: true}, want: true},
		{
			name: "heuristic with concerns",
			user: func() *models.User { u := named(); u.Concerns = []string{"acne"}; return u }(),
			want: true,
		},
		{
			name: "heuristic with skin issues",
			user: func() *models.User { u := named(); u.SkinIssues = []string{"pigmentation"}; return u }(),
			want: true,
		},
		{
			name: "heuristic with prescribed defined",
			user: func() *models.User { u := named(); u.Prescribed = json.RawMessage("false"); return u }(),
			want: true,
		},
		{name: "heuristic without clinical data", user: named(), want: false},
		{
			name: "heuristic without name",
			user: &models.User{Contact: "+919876543210", Concerns: []string{"acne"}},
			want: false,
		},
		{
			name: "heuristic without contact",
			user: &models.User{Name: "Asha", Concerns: []string{"acne"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOnboarded(tt.user, tt.all))
		})
	}
}

func TestPrescribedDecodedFromJSONCountsAsDefined(t *testing.T) {
	var user models.User
	err := json.Unmarshal([]byte(`{"name":"Asha","contact":"+919876543210","prescribed":null}`), &user)
	assert.NoError(t, err)
	assert.True(t, IsOnboarded(&user, nil))

	var bare models.User
	err = json.Unmarshal([]byte(`{"name":"Asha","contact":"+919876543210"}`), &bare)
	assert.NoError(t, err)
	assert.False(t, IsOnboarded(&bare, nil))
}

func TestHasDashboardAccess(t *testing.T) {
	assert.False(t, HasDashboardAccess(nil))
	assert.False(t, HasDashboardAccess(&models.User{ImageUploaded: true, ShopifyUserID: ""}))
	assert.False(t, HasDashboardAccess(&models.User{ShopifyUserID: "   "}))
	assert.True(t, HasDashboardAccess(&models.User{ShopifyUserID: "gid://shopify/Customer/42"}))
}

func TestNextStep(t *testing.T) {
	assert.Equal(t, StepVerify, NextStep(&models.User{}, nil, false))
	assert.Equal(t, StepVerify, NextStep(nil, nil, true))
	assert.Equal(t, StepPhoto, NextStep(&models.User{Contact: "+919876543210"}, nil, true))
	assert.Equal(t, StepAddress, NextStep(&models.User{ImageUploaded: true}, nil, true))
	assert.Equal(t, StepComplete, NextStep(&models.User{
		ImageUploaded: true,
		Addresses:     []models.Address{{Line1: "12 MG Road", City: "Pune", Pincode: "411001"}},
	}, nil, true))
}
