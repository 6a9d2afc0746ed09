package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateRoomRequest_Validate(t *testing.T) {
	description := "desc"
	empty := ""

	t.Run("valid", func(t *testing.T) {
		req := CreateRoomRequest{Name: "General", Description: &description, InvitedUsernames: []string{"alice", "bob.smith"}}
		assert.NoError(t, req.Validate())
	})

	t.Run("blank name allowed", func(t *testing.T) {
		assert.NoError(t, (&CreateRoomRequest{}).Validate())
	})

	t.Run("name too long", func(t *testing.T) {
		assert.Error(t, (&CreateRoomRequest{Name: strings.Repeat("a", 256)}).Validate())
	})

	t.Run("multi line name", func(t *testing.T) {
		assert.Error(t, (&CreateRoomRequest{Name: "General\nchat"}).Validate())
	})

	t.Run("multi line description allowed", func(t *testing.T) {
		text := "Line one\nLine two"
		assert.NoError(t, (&CreateRoomRequest{Description: &text}).Validate())

		control := "bad\x00text"
		assert.Error(t, (&CreateRoomRequest{Description: &control}).Validate())
	})

	t.Run("empty description pointer", func(t *testing.T) {
		assert.Error(t, (&CreateRoomRequest{Description: &empty}).Validate())
	})

	t.Run("bad invitee", func(t *testing.T) {
		assert.Error(t, (&CreateRoomRequest{InvitedUsernames: []string{"alice", "bad name"}}).Validate())
		assert.Error(t, (&CreateRoomRequest{InvitedUsernames: []string{""}}).Validate())
	})
}

func TestCreateRoomRequest_Private(t *testing.T) {
	yes, no := true, false
	assert.True(t, (&CreateRoomRequest{}).Private())
	assert.True(t, (&CreateRoomRequest{IsPrivate: &yes}).Private())
	assert.False(t, (&CreateRoomRequest{IsPrivate: &no}).Private())
}

func TestAddMemberRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AddMemberRequest{Username: "alice"}).Validate())
	assert.Error(t, (&AddMemberRequest{}).Validate())
	assert.Error(t, (&AddMemberRequest{Username: "a b"}).Validate())
}
