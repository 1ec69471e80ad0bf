package types

import "github.com/google/uuid"

// Account is a user (or agent) identity.
type Account struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Username  string         `json:"username"`
	Email     string         `json:"email,omitempty"`
	AvatarURL string         `json:"avatarUrl,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Participant is a room member with its account details.
type Participant struct {
	ID      uuid.UUID `json:"id"`
	Account Account   `json:"account"`
}

// Room is a conversation scope.
type Room struct {
	ID           uuid.UUID     `json:"id"`
	Participants []Participant `json:"participants"`
}

// ParticipantUserState is the follow/mute preference of a participant in a room.
type ParticipantUserState string

const (
	ParticipantNone     ParticipantUserState = ""
	ParticipantFollowed ParticipantUserState = "FOLLOWED"
	ParticipantMuted    ParticipantUserState = "MUTED"
)

// Relationship links two accounts sharing a room.
type Relationship struct {
	ID        uuid.UUID `json:"id"`
	UserA     uuid.UUID `json:"userA"`
	UserB     uuid.UUID `json:"userB"`
	UserID    uuid.UUID `json:"userId"`
	RoomID    uuid.UUID `json:"roomId"`
	Status    string    `json:"status"`
	CreatedAt int64     `json:"createdAt,omitempty"`
}

// ActorDetails is the public profile of an actor.
type ActorDetails struct {
	Tagline string `json:"tagline"`
	Summary string `json:"summary"`
	Quote   string `json:"quote"`
}

// Actor is a participant of a conversation as rendered into prompts.
type Actor struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Username string       `json:"username"`
	Details  ActorDetails `json:"details"`
}
