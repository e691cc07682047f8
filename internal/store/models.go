package store

import "time"

// Process tags stored next to a pending code.
const (
	ProcessRegister      = "register"
	// ProcessLogin is reserved for emailed login codes. Stores accept it,
	// no flow issues it yet.
	ProcessLogin         = "login"
	ProcessResetPassword = "reset-password"
)

type User struct {
	UID               int64
	Name              string
	Email             string
	Password          string `json:"-"`
	// Code is the pending one-time code, empty once consumed.
	Code              string `json:"-"`
	Process           string
	Verified          bool
	RegistrationDate  time.Time
	VerificationDate  *time.Time
	CodeGeneratedDate *time.Time
	GitHub            string
	GitLab            string
	LinkedIn          string
	About             string
}

type Group struct {
	GID          int64
	Name         string
	Location     string
	Description  string
	Owner        int64
	CreationDate time.Time
}

type Membership struct {
	GID      int64
	UID      int64
	Admin    bool
	JoinDate time.Time
}

type EventStatus string

const (
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

type Event struct {
	EID         int64
	Title       string
	Description string
	Date        time.Time
	Location    string
	GroupID     int64
	Status      EventStatus
}

// RSVP records whether a user plans to attend an event. Status true means yes.
type RSVP struct {
	EID    int64
	UID    int64
	Status bool
	Date   time.Time
}

// Attendee is an RSVP joined with the user it belongs to.
type Attendee struct {
	User   User
	Status bool
	Date   time.Time
}

// Audit entry types.
const (
	AuditRegister      = "register"
	AuditVerifyEmail   = "verify-email"
	AuditResetPassword = "reset-password"
	AuditCreateGroup   = "create-group"
	AuditJoinGroup     = "join-group"
	AuditLeaveGroup    = "leave-group"
	AuditRSVPYes       = "rsvp-yes"
	AuditRSVPYesAgain  = "rsvp-yes-again"
	AuditRSVPNo        = "rsvp-no"
	AuditCancelEvent   = "cancel-event"
)

type AuditEntry struct {
	ID   int64
	Date time.Time
	Type string
	Data map[string]any
}
