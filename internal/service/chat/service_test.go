package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/repository/memory"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
)

func newService(delay time.Duration) *Service {
	repo := repository.NewCollection[model.ChatSession](memory.NewStore(), model.KeyChatSessions, nil)
	return NewService(repo, Config{ReplyDelay: delay})
}

func TestStart_SeedsGreetings(t *testing.T) {
	svc := newService(time.Hour)
	defer svc.Close()

	session, err := svc.Start(context.Background(), model.StartChatRequest{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	require.Len(t, session.Messages, 2)
	assert.Equal(t, "Hello! I'm Asha. I need assistance.", session.Messages[0].Message)
	assert.Equal(t, model.ChatSenderUser, session.Messages[0].Sender)
	assert.Equal(t, "Hello! Thank you for contacting us. How can I help you today?", session.Messages[1].Message)
	assert.Equal(t, model.ChatSenderAdmin, session.Messages[1].Sender)
	assert.NotEqual(t, session.Messages[0].ID, session.Messages[1].ID)
	assert.Equal(t, model.ChatSessionActive, session.Status)

	_, err = svc.Start(context.Background(), model.StartChatRequest{Name: "  "})
	assert.Error(t, err)
}

func TestSend_AutoReply(t *testing.T) {
	svc := newService(10 * time.Millisecond)
	defer svc.Close()
	ctx := context.Background()

	session, err := svc.Start(ctx, model.StartChatRequest{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	msg, err := svc.Send(ctx, session.ID, "  What are your visiting hours?  ")
	require.NoError(t, err)
	assert.Equal(t, "What are your visiting hours?", msg.Message)

	assert.Eventually(t, func() bool {
		got, err := svc.Get(ctx, session.ID)
		return err == nil && len(got.Messages) == 4
	}, 2*time.Second, 10*time.Millisecond)

	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChatSenderAdmin, got.Messages[3].Sender)
	assert.Equal(t, DefaultAutoReply, got.Messages[3].Message)
}

func TestSend_Rejections(t *testing.T) {
	svc := newService(time.Hour)
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Send(ctx, "missing", "hi")
	assert.True(t, apperrors.IsNotFound(err))

	session, err := svc.Start(ctx, model.StartChatRequest{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	_, err = svc.Send(ctx, session.ID, "   ")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	_, err = svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	_, err = svc.Send(ctx, session.ID, "hello?")
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestClose_StopsPendingReplies(t *testing.T) {
	svc := newService(50 * time.Millisecond)
	ctx := context.Background()

	session, err := svc.Start(ctx, model.StartChatRequest{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Pending())

	svc.Close()
	assert.Equal(t, 0, svc.Pending())

	time.Sleep(100 * time.Millisecond)
	got, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)

	_, err = svc.Send(ctx, session.ID, "still there?")
	require.NoError(t, err, "messages are stored even after the reply timers stop")
}

func TestList_MostRecentFirst(t *testing.T) {
	svc := newService(time.Hour)
	defer svc.Close()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return base })
	first, err := svc.Start(ctx, model.StartChatRequest{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return base.Add(time.Minute) })
	second, err := svc.Start(ctx, model.StartChatRequest{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}
