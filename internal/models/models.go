package models

import "time"

// User roles carried in the access token
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	PushToken *string   `json:"push_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Card activity statuses
const (
	ActivityActivelyLooking = "actively_looking"
	ActivityBusy            = "busy"
	ActivityNotLooking      = "not_looking"
)

// Card is a user's team finder profile. One per user.
type Card struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	SecondaryRole string    `json:"secondaryRole"`
	Level         string    `json:"level"`
	Availability  []string  `json:"availability"`
	Interests     []string  `json:"interests"`
	LookingFor    string    `json:"lookingFor"`
	Bio           string    `json:"bio"`
	Active        string    `json:"active"`
	LastActive    time.Time `json:"lastActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Connection request statuses
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
)

// ConnectionRequest is a directed invitation from one user to another
type ConnectionRequest struct {
	ID          string     `json:"id"`
	FromUserID  string     `json:"from"`
	ToUserID    string     `json:"to"`
	EventID     *string    `json:"eventId,omitempty"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Conversation pairs two users. UserAID is always lexicographically smaller than UserBID.
type Conversation struct {
	ID            string    `json:"id"`
	UserAID       string    `json:"userAId"`
	UserBID       string    `json:"userBId"`
	ConnectionID  string    `json:"connectionId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other returns the participant that is not userID
func (c *Conversation) Other(userID string) string {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// Message belongs to exactly one conversation
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	Text           string     `json:"text"`
	ReadAt         *time.Time `json:"readAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UnreadCount is the number of unread messages in one conversation for one reader
type UnreadCount struct {
	ConversationID string
	OtherUserID    string
	Count          int
}

// TeamSize bounds the number of members per registration
type TeamSize struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Event is a hackathon or competition users register teams for
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	OrganizerID      string    `json:"organizerId"`
	RegistrationFee  float64   `json:"registrationFee"`
	TeamSize         TeamSize  `json:"teamSize"`
	ParticipantCount int       `json:"participantCount"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IsPaid reports whether registrations must go through problem review and payment
func (e *Event) IsPaid() bool {
	return e.RegistrationFee > 0
}

// Registration statuses
const (
	RegistrationPending    = "pending"
	RegistrationApproved   = "approved"
	RegistrationRejected   = "rejected"
	RegistrationRegistered = "registered"
)

// Problem statement statuses
const (
	ProblemPendingReview = "pending_review"
	ProblemApproved      = "approved"
	ProblemRejected      = "rejected"
)

// Payment statuses
const (
	PaymentNotRequired = "not_required"
	PaymentPending     = "pending"
	PaymentCompleted   = "completed"
)

// Team member roles
const (
	MemberLeader = "leader"
	MemberMember = "member"
)

// TeamMember is one entry of a registration's team
type TeamMember struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

// ProblemStatement is the project idea a team submits for review on paid events
type ProblemStatement struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DocumentURL  string     `json:"documentUrl,omitempty"`
	Status       string     `json:"status"`
	AdminRemarks string     `json:"adminRemarks,omitempty"`
	ReviewedBy   *string    `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	SubmittedAt  time.Time  `json:"submittedAt"`
	Resubmitted  bool       `json:"resubmitted,omitempty"`
}

// Registration is one user's team entry for one event
type Registration struct {
	ID               string            `json:"id"`
	EventID          string            `json:"eventId"`
	UserID           string            `json:"userId"`
	TeamName         string            `json:"teamName"`
	TeamMembers      []TeamMember      `json:"teamMembers"`
	Locality         string            `json:"locality,omitempty"`
	Status           string            `json:"status"`
	ProblemStatement *ProblemStatement `json:"problemStatement,omitempty"`
	PaymentStatus    string            `json:"paymentStatus"`
	PaymentAmount    float64           `json:"paymentAmount"`
	PaymentDate      *time.Time        `json:"paymentDate,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}
