package model

import "time"

type ChatSender string

const (
	ChatSenderUser  ChatSender = "user"
	ChatSenderAdmin ChatSender = "admin"
)

type ChatSessionStatus string

const (
	ChatSessionActive ChatSessionStatus = "active"
	ChatSessionClosed ChatSessionStatus = "closed"
)

type ChatMessage struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Sender    ChatSender `json:"sender"`
	Timestamp time.Time  `json:"timestamp"`
	IsRead    bool       `json:"isRead"`
}

type ChatSession struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName"`
	UserEmail string            `json:"userEmail"`
	Messages  []ChatMessage     `json:"messages"`
	Status    ChatSessionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type StartChatRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type SendChatMessageRequest struct {
	Message string `json:"message" binding:"required"`
}
