package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	req := require.New(t)

	frame, err := NewEnvelope(EventReceiveMessage, SendMessage{Sender: "alice", Recipient: "bob", Message: "hi"})
	req.NoError(err)
	req.JSONEq(`{"event":"receiveMessage","data":{"sender":"alice","recipient":"bob","message":"hi"}}`, string(frame))

	frame, err = NewEnvelope(EventUsers, []string{"alice", "bob"})
	req.NoError(err)
	req.JSONEq(`{"event":"users","data":["alice","bob"]}`, string(frame))
}

func TestDecodeEnvelope(t *testing.T) {
	req := require.New(t)

	env, err := DecodeEnvelope([]byte(`{"event":"newUser","data":"alice"}`))
	req.NoError(err)
	req.Equal(EventNewUser, env.Event)

	var username string
	req.NoError(json.Unmarshal(env.Data, &username))
	req.Equal("alice", username)

	_, err = DecodeEnvelope([]byte(`not json`))
	req.Error(err)

	_, err = DecodeEnvelope([]byte(`{"data":"alice"}`))
	req.ErrorContains(err, "missing event name")
}

func TestSendMessage_ToChatMessage(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	msg := SendMessage{Sender: "alice", Recipient: "bob", Message: "hi"}.ToChatMessage(now)

	require.Equal(t, &ChatMessage{Sender: "alice", Recipient: "bob", Message: "hi", Timestamp: now}, msg)
}
