package models

// OTPVerification is the decoded VerifyWAOTPUser payload.
type OTPVerification struct {
	Message string `json:"message"`
	Profile bool   `json:"profile"`
	Token   string `json:"token,omitempty"`
}
