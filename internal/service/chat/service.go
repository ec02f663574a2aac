package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/logger"
)

const (
	DefaultReplyDelay = time.Second
	DefaultAutoReply  = "Thank you for your message. Our team will assist you shortly."

	adminGreeting = "Hello! Thank you for contacting us. How can I help you today?"
	replyTimeout  = 5 * time.Second
)

var ErrServiceClosed = errors.New("chat service closed")

type Config struct {
	ReplyDelay time.Duration
	AutoReply  string
}

// Service runs the patient chat widget. Auto-replies are scheduled on timers
// owned by the service; Close stops the pending ones.
type Service struct {
	repo       repository.ChatSessionRepository
	replyDelay time.Duration
	autoReply  string
	now        func() time.Time

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewService(repo repository.ChatSessionRepository, cfg Config) *Service {
	if cfg.ReplyDelay <= 0 {
		cfg.ReplyDelay = DefaultReplyDelay
	}
	if cfg.AutoReply == "" {
		cfg.AutoReply = DefaultAutoReply
	}
	return &Service{
		repo:       repo,
		replyDelay: cfg.ReplyDelay,
		autoReply:  cfg.AutoReply,
		now:        time.Now,
		timers:     make(map[*time.Timer]struct{}),
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Start opens a session seeded with the visitor's and the desk's greetings.
func (s *Service) Start(ctx context.Context, req model.StartChatRequest) (*model.ChatSession, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return nil, apperrors.BadRequest("name and email are required", nil)
	}

	now := s.now()
	session := model.ChatSession{
		UserID:    "user-" + email,
		UserName:  name,
		UserEmail: email,
		Status:    model.ChatSessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.Messages = []model.ChatMessage{
		newMessage(nil, fmt.Sprintf("Hello! I'm %s. I need assistance.", name), model.ChatSenderUser, now),
	}
	session.Messages = append(session.Messages,
		newMessage(session.Messages, adminGreeting, model.ChatSenderAdmin, now))

	_, err := s.repo.Mutate(ctx, func(items []model.ChatSession) ([]model.ChatSession, error) {
		session.ID = model.NextTimestampID("", now, func(id string) bool {
			for _, existing := range items {
				if existing.ID == id {
					return true
				}
			}
			return false
		})
		return append(items, session), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start chat session: %w", err)
	}
	return &session, nil
}

// Send appends the visitor's message and schedules the auto-reply.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.BadRequest("message is empty", nil)
	}

	msg, err := s.appendMessage(ctx, sessionID, text, model.ChatSenderUser)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleReply(sessionID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("auto-reply not scheduled")
	}
	return msg, nil
}

func (s *Service) appendMessage(ctx context.Context, sessionID, text string, sender model.ChatSender) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	var closed bool
	_, err := s.repo.Mutate(ctx, func(items []model.ChatSession) ([]model.ChatSession, error) {
		next := make([]model.ChatSession, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID != sessionID {
				continue
			}
			if next[i].Status == model.ChatSessionClosed {
				closed = true
				return nil, repository.ErrNoChange
			}
			now := s.now()
			msg = newMessage(next[i].Messages, text, sender, now)
			messages := make([]model.ChatMessage, len(next[i].Messages), len(next[i].Messages)+1)
			copy(messages, next[i].Messages)
			next[i].Messages = append(messages, msg)
			next[i].UpdatedAt = now
			return next, nil
		}
		return nil, repository.ErrNoChange
	})
	if errors.Is(err, repository.ErrNoChange) {
		if closed {
			return nil, apperrors.Conflict("chat session is closed", nil)
		}
		return nil, apperrors.NotFound("chat session", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to send chat message: %w", err)
	}
	return &msg, nil
}

func (s *Service) scheduleReply(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}

	var t *time.Timer
	t = time.AfterFunc(s.replyDelay, func() {
		s.mu.Lock()
		if _, ok := s.timers[t]; !ok {
			s.mu.Unlock()
			return
		}
		delete(s.timers, t)
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		if _, err := s.appendMessage(ctx, sessionID, s.autoReply, model.ChatSenderAdmin); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("auto-reply failed")
		}
	})
	s.timers[t] = struct{}{}
	return nil
}

// Pending reports how many auto-replies are scheduled but not yet sent.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops pending auto-replies and waits for running ones.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for t := range s.timers {
		t.Stop()
		delete(s.timers, t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// List returns sessions, most recently active first.
func (s *Service) List(ctx context.Context) ([]model.ChatSession, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := snap.Items
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap.Items {
		if snap.Items[i].ID == id {
			return &snap.Items[i], nil
		}
	}
	return nil, apperrors.NotFound("chat session", nil)
}

func (s *Service) CloseSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var closed model.ChatSession
	_, err := s.repo.Mutate(ctx, func(items []model.ChatSession) ([]model.ChatSession, error) {
		next := make([]model.ChatSession, len(items))
		copy(next, items)
		for i := range next {
			if next[i].ID != id {
				continue
			}
			next[i].Status = model.ChatSessionClosed
			next[i].UpdatedAt = s.now()
			closed = next[i]
			return next, nil
		}
		return nil, repository.ErrNoChange
	})
	if errors.Is(err, repository.ErrNoChange) {
		return nil, apperrors.NotFound("chat session", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close chat session: %w", err)
	}
	return &closed, nil
}

func newMessage(existing []model.ChatMessage, text string, sender model.ChatSender, now time.Time) model.ChatMessage {
	id := model.NextTimestampID("", now, func(id string) bool {
		for _, m := range existing {
			if m.ID == id {
				return true
			}
		}
		return false
	})
	return model.ChatMessage{
		ID:        id,
		Message:   text,
		Sender:    sender,
		Timestamp: now,
		IsRead:    sender == model.ChatSenderUser,
	}
}
