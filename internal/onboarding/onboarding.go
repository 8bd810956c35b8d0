// Package onboarding decides whether a user has finished the onboarding wizard
// and whether they may see the dashboard.
package onboarding

import (
	"strings"

	"github.com/example/skinwise/internal/models"
)

// Step is the wizard step a user should resume at.
type Step string

const (
	StepVerify   Step = "verify"
	StepPhoto    Step = "photo"
	StepAddress  Step = "address"
	StepComplete Step = "complete"
)

// IsOnboarded reports whether user completed onboarding.
//
// Prescriptions are authoritative when the backend sent them. Without them the
// image_uploaded flag is trusted, and failing that a conservative heuristic is
// used: the user needs a name, a contact, and some clinical data.
func IsOnboarded(user *models.User, all *models.UserData) bool {
	if user == nil {
		return false
	}
	if all != nil && all.Prescriptions != nil {
		return len(all.Prescriptions) > 0
	}
	if user.ImageUploaded {
		return true
	}

	hasName := strings.TrimSpace(user.DisplayName()) != ""
	hasContact := strings.TrimSpace(user.Contact) != ""
	hasClinicalData := len(user.Concerns) > 0 || len(user.SkinIssues) > 0 || len(user.Prescribed) > 0
	return hasName && hasContact && hasClinicalData
}

// HasDashboardAccess reports whether user completed a paid transaction.
func HasDashboardAccess(user *models.User) bool {
	return user != nil && strings.TrimSpace(user.ShopifyUserID) != ""
}

// NextStep returns where an unfinished user should resume the wizard.
func NextStep(user *models.User, all *models.UserData, authenticated bool) Step {
	if !authenticated || user == nil {
		return StepVerify
	}
	if !IsOnboarded(user, all) && !user.ImageUploaded {
		return StepPhoto
	}
	if len(user.Addresses) == 0 {
		return StepAddress
	}
	return StepComplete
}
