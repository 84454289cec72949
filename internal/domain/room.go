package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

const (
	MinPlayers = 2
	MaxPlayers = 6
)

// Participant is one room member. Participants are kept as an ordered list,
// unique by user id, with the host always present while the room exists.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type Room struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JoinCode     string         `json:"joinCode" gorm:"uniqueIndex;not null"`
	Name         string         `json:"name" gorm:"not null"`
	HostID       uuid.UUID      `json:"hostId" gorm:"type:uuid;not null"`
	MaxPlayers   int            `json:"maxPlayers" gorm:"not null;default:4"`
	Privacy      Privacy        `json:"privacy" gorm:"not null;default:'public'"`
	IsActive     bool           `json:"isActive" gorm:"not null;default:true"`
	Participants datatypes.JSON `json:"participants" gorm:"not null"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	Host *User `json:"host,omitempty" gorm:"foreignKey:HostID"`
}

// ParticipantList decodes the stored participants blob. A malformed or empty
// blob decodes to an empty list rather than an error; the store boundary is
// the only place raw JSON is handled.
func (r *Room) ParticipantList() []Participant {
	var list []Participant
	if len(r.Participants) == 0 {
		return list
	}
	if err := json.Unmarshal(r.Participants, &list); err != nil {
		return nil
	}
	return list
}

func (r *Room) SetParticipantList(list []Participant) {
	if list == nil {
		list = []Participant{}
	}
	data, _ := json.Marshal(list)
	r.Participants = data
}

// AddParticipant appends preserving insertion order. Adding a user who is
// already a member is a no-op; it reports whether the list changed.
func (r *Room) AddParticipant(p Participant) bool {
	list := r.ParticipantList()
	for _, existing := range list {
		if existing.ID == p.ID {
			return false
		}
	}
	r.SetParticipantList(append(list, p))
	return true
}

// RemoveParticipant reports whether the user was a member.
func (r *Room) RemoveParticipant(userID uuid.UUID) bool {
	list := r.ParticipantList()
	kept := make([]Participant, 0, len(list))
	removed := false
	for _, p := range list {
		if p.ID == userID {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if removed {
		r.SetParticipantList(kept)
	}
	return removed
}

// ParticipantName returns the stored username for a member, or "" for a
// non-member.
func (r *Room) ParticipantName(userID uuid.UUID) string {
	for _, p := range r.ParticipantList() {
		if p.ID == userID {
			return p.Username
		}
	}
	return ""
}

func (r *Room) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.ParticipantList() {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (r *Room) ParticipantCount() int {
	return len(r.ParticipantList())
}
