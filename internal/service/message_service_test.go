package service_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/domain"
	"duochat/internal/service"
)

func sendAudioInput(audio []byte) service.SendInput {
	return service.SendInput{
		MessageType: domain.MessageTypeAudio,
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
	}
}

func TestSend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)

	t.Run("TextMessage", func(t *testing.T) {
		msg := env.sendText(t, conv.ID, env.alice.ID, "hello bob")

		assert.Equal(t, conv.ID, msg.ConversationID)
		assert.Equal(t, env.alice.ID, msg.SenderID)
		assert.Equal(t, env.bob.ID, msg.RecipientID)
		assert.True(t, msg.IsDelivered)
		assert.False(t, msg.IsRead)
		// Content is stored encrypted.
		assert.NotEqual(t, "hello bob", msg.Content)

		resp, err := env.msgSvc.ToResponse(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, "hello bob", resp.Content)
		assert.Equal(t, "alice", resp.SenderUsername)
	})

	t.Run("DefaultsToText", func(t *testing.T) {
		msg, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, service.SendInput{Content: "typed"})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	})

	t.Run("BlankTextRejected", func(t *testing.T) {
		_, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, service.SendInput{
			Content:     "   ",
			MessageType: domain.MessageTypeText,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		_, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, service.SendInput{
			Content:     "x",
			MessageType: domain.MessageType("video"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("NonParticipantRejected", func(t *testing.T) {
		carol := env.createUser(t, "carol", "+15550003")
		_, err := env.msgSvc.Send(ctx, conv.ID, carol.ID, service.SendInput{Content: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSendAudio(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)

	t.Run("RoundTripsThroughStorage", func(t *testing.T) {
		audio := []byte{0x4f, 0x67, 0x67, 0x53, 0x00, 0x02}
		msg, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, sendAudioInput(audio))
		require.NoError(t, err)

		stored, err := env.msgs.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, audio, stored.AudioData)

		resp, err := env.msgSvc.ToResponse(ctx, stored)
		require.NoError(t, err)
		decoded, err := base64.StdEncoding.DecodeString(resp.AudioDataBase64)
		require.NoError(t, err)
		assert.Equal(t, audio, decoded)
	})

	t.Run("MissingPayloadRejected", func(t *testing.T) {
		_, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, service.SendInput{
			MessageType: domain.MessageTypeAudio,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("MalformedBase64Rejected", func(t *testing.T) {
		_, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, service.SendInput{
			MessageType: domain.MessageTypeAudio,
			AudioBase64: "not base64!!!",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})
}

func TestSendDirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("ResolvesByPhone", func(t *testing.T) {
		msg, err := env.msgSvc.SendDirect(ctx, env.alice.ID, "+15550002", "hey")
		require.NoError(t, err)
		assert.Equal(t, env.bob.ID, msg.RecipientID)
	})

	t.Run("ResolvesByUsername", func(t *testing.T) {
		msg, err := env.msgSvc.SendDirect(ctx, env.alice.ID, "bob", "again")
		require.NoError(t, err)
		assert.Equal(t, env.bob.ID, msg.RecipientID)
	})

	t.Run("ReusesConversation", func(t *testing.T) {
		first, err := env.msgSvc.SendDirect(ctx, env.alice.ID, "bob", "one")
		require.NoError(t, err)
		second, err := env.msgSvc.SendDirect(ctx, env.bob.ID, "alice", "two")
		require.NoError(t, err)
		assert.Equal(t, first.ConversationID, second.ConversationID)
	})

	t.Run("UnknownRecipient", func(t *testing.T) {
		_, err := env.msgSvc.SendDirect(ctx, env.alice.ID, "nobody", "hi")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)
	msg := env.sendText(t, conv.ID, env.alice.ID, "original")

	t.Run("OwnerCanEdit", func(t *testing.T) {
		edited, err := env.msgSvc.Edit(ctx, env.alice.ID, msg.ID, "corrected")
		require.NoError(t, err)

		resp, err := env.msgSvc.ToResponse(ctx, edited)
		require.NoError(t, err)
		assert.Equal(t, "corrected", resp.Content)

		stored, err := env.msgs.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, edited.Content, stored.Content)
	})

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		_, err := env.msgSvc.Edit(ctx, env.bob.ID, msg.ID, "hijacked")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("MissingMessage", func(t *testing.T) {
		_, err := env.msgSvc.Edit(ctx, env.alice.ID, 9999, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("AudioNotEditable", func(t *testing.T) {
		audioMsg, err := env.msgSvc.Send(ctx, conv.ID, env.alice.ID, sendAudioInput([]byte{1, 2, 3}))
		require.NoError(t, err)
		_, err = env.msgSvc.Edit(ctx, env.alice.ID, audioMsg.ID, "caption")
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("BlankContentRejected", func(t *testing.T) {
		_, err := env.msgSvc.Edit(ctx, env.alice.ID, msg.ID, "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)

	t.Run("OwnerCanDelete", func(t *testing.T) {
		msg := env.sendText(t, conv.ID, env.alice.ID, "oops")

		deleted, err := env.msgSvc.Delete(ctx, env.alice.ID, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, msg.ID, deleted.ID)

		stored, err := env.msgs.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		msg := env.sendText(t, conv.ID, env.alice.ID, "keep out")
		_, err := env.msgSvc.Delete(ctx, env.bob.ID, msg.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		stored, err := env.msgs.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored)
	})

	t.Run("MissingMessage", func(t *testing.T) {
		_, err := env.msgSvc.Delete(ctx, env.alice.ID, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListVisible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)

	t.Run("FullHistoryWithoutWatermark", func(t *testing.T) {
		env.sendText(t, conv.ID, env.alice.ID, "one")
		env.sendText(t, conv.ID, env.bob.ID, "two")

		msgs, err := env.msgSvc.ListVisible(ctx, conv.ID, env.alice.ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 2)
	})

	t.Run("MarksInboundRead", func(t *testing.T) {
		msgs, err := env.msgSvc.ListVisible(ctx, conv.ID, env.alice.ID)
		require.NoError(t, err)
		for _, m := range msgs {
			if m.RecipientID == env.alice.ID {
				assert.True(t, m.IsRead)
			}
		}
	})

	t.Run("NonParticipantRejected", func(t *testing.T) {
		carol := env.createUser(t, "carol", "+15550003")
		_, err := env.msgSvc.ListVisible(ctx, conv.ID, carol.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestWatermarkScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.convSvc.FindOrCreate(ctx, env.alice.ID, env.bob.ID)
	require.NoError(t, err)

	env.sendText(t, conv.ID, env.alice.ID, "old one")
	env.sendText(t, conv.ID, env.bob.ID, "old two")

	require.NoError(t, env.convSvc.SoftDelete(ctx, conv.ID, env.bob.ID))

	// New message restores the thread for bob.
	env.sendText(t, conv.ID, env.alice.ID, "fresh start")

	t.Run("DeleterSeesOnlyNewMessages", func(t *testing.T) {
		msgs, err := env.msgSvc.ListVisible(ctx, conv.ID, env.bob.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		resp, err := env.msgSvc.ToResponse(ctx, msgs[0])
		require.NoError(t, err)
		assert.Equal(t, "fresh start", resp.Content)
	})

	t.Run("OtherParticipantSeesEverything", func(t *testing.T) {
		msgs, err := env.msgSvc.ListVisible(ctx, conv.ID, env.alice.ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 3)
	})

	t.Run("SecondDeleteAdvancesCut", func(t *testing.T) {
		require.NoError(t, env.convSvc.SoftDelete(ctx, conv.ID, env.bob.ID))
		env.sendText(t, conv.ID, env.alice.ID, "newest")

		msgs, err := env.msgSvc.ListVisible(ctx, conv.ID, env.bob.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		resp, err := env.msgSvc.ToResponse(ctx, msgs[0])
		require.NoError(t, err)
		assert.Equal(t, "newest", resp.Content)
	})
}
