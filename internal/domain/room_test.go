package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoom_Participants(t *testing.T) {
	host := Participant{ID: uuid.New(), Username: "host"}
	other := Participant{ID: uuid.New(), Username: "other"}

	room := &Room{}
	room.SetParticipantList([]Participant{host})

	assert.Equal(t, 1, room.ParticipantCount())
	assert.True(t, room.HasParticipant(host.ID))
	assert.False(t, room.HasParticipant(other.ID))

	assert.True(t, room.AddParticipant(other))
	assert.Equal(t, 2, room.ParticipantCount())

	// Re-adding the same user changes nothing
	assert.False(t, room.AddParticipant(other))
	assert.Equal(t, 2, room.ParticipantCount())

	// Insertion order preserved
	list := room.ParticipantList()
	require.Len(t, list, 2)
	assert.Equal(t, host.ID, list[0].ID)
	assert.Equal(t, other.ID, list[1].ID)

	assert.True(t, room.RemoveParticipant(other.ID))
	assert.False(t, room.RemoveParticipant(other.ID))
	assert.Equal(t, 1, room.ParticipantCount())
}

func TestRoom_ParticipantsEmptyBlob(t *testing.T) {
	room := &Room{}
	assert.Equal(t, 0, room.ParticipantCount())
	assert.False(t, room.HasParticipant(uuid.New()))
	assert.False(t, room.RemoveParticipant(uuid.New()))
}
