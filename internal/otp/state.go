package otp

// State is the flow's current position. Exactly one of the types below.
type State interface {
	Label() string
}

// Idle means no challenge has been sent yet.
type Idle struct{}

// Sending means a send request is in flight.
type Sending struct {
	Contact string
}

// AwaitingCode means a challenge was delivered and the user may enter the code.
type AwaitingCode struct {
	Contact string
	Name    string
}

// Verifying means a verify request is in flight.
type Verifying struct {
	Contact string
	Name    string
}

// Verified is terminal.
type Verified struct {
	Contact string
	Outcome Outcome
}

// Failed keeps the phone so the user can re-enter the code or resend.
type Failed struct {
	Contact string
	Name    string
	Reason  string
}

func (Idle) Label() string         { return "idle" }
func (Sending) Label() string      { return "sending" }
func (AwaitingCode) Label() string { return "awaiting_code" }
func (Verifying) Label() string    { return "verifying" }
func (Verified) Label() string     { return "verified" }
func (Failed) Label() string       { return "failed" }

// Outcome tells the caller where to go after a successful verification.
type Outcome int

const (
	// OutcomeExisting is a returning user who received a credential.
	OutcomeExisting Outcome = iota + 1
	// OutcomeNew is a first-time user who still has onboarding to complete.
	OutcomeNew
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExisting:
		return "existing"
	case OutcomeNew:
		return "new"
	default:
		return "unknown"
	}
}

// ChallengeOf returns the contact and display name of the pending challenge, if any.
func ChallengeOf(s State) (string, string, bool) {
	switch st := s.(type) {
	case AwaitingCode:
		return st.Contact, st.Name, true
	case Failed:
		return st.Contact, st.Name, st.Contact != ""
	default:
		return "", "", false
	}
}
