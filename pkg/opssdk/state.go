package opssdk

// State is the session's position in its lifecycle. It is one of
// Unauthenticated, AwaitingSecondFactor, Authenticated or SessionError.
type State interface {
	// Name is a stable lower-case identifier for logs and CLI output.
	Name() string
	isState()
}

// Unauthenticated carries an optional notice left by the previous session,
// such as why it ended.
type Unauthenticated struct {
	Notice string
}

// AwaitingSecondFactor holds the username whose login needs a one-time code.
// The password is never retained.
type AwaitingSecondFactor struct {
	Username string
}

// Authenticated always carries both the user and the company they belong to.
type Authenticated struct {
	User    User
	Company Company
}

// SessionError is transient: it reports why a session was dropped and
// collapses into Unauthenticated on AckError or the next transition.
type SessionError struct {
	Message string
}

func (Unauthenticated) Name() string      { return "unauthenticated" }
func (AwaitingSecondFactor) Name() string { return "awaiting_second_factor" }
func (Authenticated) Name() string        { return "authenticated" }
func (SessionError) Name() string         { return "session_error" }

func (Unauthenticated) isState()      {}
func (AwaitingSecondFactor) isState() {}
func (Authenticated) isState()        {}
func (SessionError) isState()         {}
