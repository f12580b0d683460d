// Package demo carries the seed-backed collaborator entities (users and chat
// boards) that exercise the entity store's seeding and bulk-delete paths.
// They are demo bootstrap data, unrelated to the pipeline.
package demo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pwaforge/internal/entity"
)

// User is a demo participant.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EntityID implements entity.Record.
func (u User) EntityID() string { return u.ID }

// Message is one chat board entry.
type Message struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"` // epoch millis
}

// ChatBoard is a titled message board with its messages inlined.
type ChatBoard struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// EntityID implements entity.Record.
func (c ChatBoard) EntityID() string { return c.ID }

// ChatSummary is the creation response shape, without messages.
type ChatSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

var seedUsers = []User{
	{ID: "u1", Name: "Ada"},
	{ID: "u2", Name: "Grace"},
	{ID: "u3", Name: "Linus"},
}

var seedChats = []ChatBoard{
	{
		ID:    "c1",
		Title: "General",
		Messages: []Message{
			{ID: "m1", ChatID: "c1", UserID: "u1", Text: "Welcome to pwaforge", TS: 1700000000000},
			{ID: "m2", ChatID: "c1", UserID: "u2", Text: "Upload a project to get started", TS: 1700000060000},
		},
	},
	{
		ID:    "c2",
		Title: "Support",
		Messages: []Message{
			{ID: "m3", ChatID: "c2", UserID: "u3", Text: "Exports need a perfect validation score", TS: 1700000120000},
		},
	},
}

// Service owns the demo collections.
type Service struct {
	store *entity.Store
	users *entity.Collection[User]
	chats *entity.Collection[ChatBoard]
}

// NewService binds the demo collections to the store. When seeded is false
// the collections start empty and EnsureSeed becomes a no-op.
func NewService(store *entity.Store, seeded bool) *Service {
	users := entity.Config[User]{Kind: "user"}
	chats := entity.Config[ChatBoard]{Kind: "chat"}
	if seeded {
		users.Seed = seedUsers
		chats.Seed = seedChats
	}
	return &Service{
		store: store,
		users: entity.NewCollection(store, users),
		chats: entity.NewCollection(store, chats),
	}
}

// ListUsers seeds on first read and returns one page of users.
func (s *Service) ListUsers(ctx context.Context, cursor *string, limit int) (entity.Page[User], error) {
	if err := s.users.EnsureSeed(ctx); err != nil {
		return entity.Page[User]{}, err
	}
	return s.users.List(ctx, cursor, limit)
}

// CreateUser adds a user with a fresh id.
func (s *Service) CreateUser(ctx context.Context, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("user name is required")
	}
	return s.users.Create(ctx, User{ID: s.store.NewID(), Name: name})
}

// DeleteUser removes one user, reporting whether it existed.
func (s *Service) DeleteUser(ctx context.Context, id string) (bool, error) {
	return s.users.Delete(ctx, id)
}

// DeleteUsers removes a batch of users and returns the count deleted.
func (s *Service) DeleteUsers(ctx context.Context, ids []string) (int64, error) {
	return s.users.DeleteMany(ctx, ids)
}

// ListChats seeds on first read and returns one page of chat boards.
func (s *Service) ListChats(ctx context.Context, cursor *string, limit int) (entity.Page[ChatBoard], error) {
	if err := s.chats.EnsureSeed(ctx); err != nil {
		return entity.Page[ChatBoard]{}, err
	}
	return s.chats.List(ctx, cursor, limit)
}

// CreateChat adds an empty chat board and returns its summary.
func (s *Service) CreateChat(ctx context.Context, title string) (ChatSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ChatSummary{}, fmt.Errorf("chat title is required")
	}
	created, err := s.chats.Create(ctx, ChatBoard{ID: s.store.NewID(), Title: title, Messages: []Message{}})
	if err != nil {
		return ChatSummary{}, err
	}
	return ChatSummary{ID: created.ID, Title: created.Title}, nil
}

// ListMessages returns a chat board's messages, or entity.ErrNotFound.
func (s *Service) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return chat.Messages, nil
}

// SendMessage appends a message to a chat board.
func (s *Service) SendMessage(ctx context.Context, chatID, userID, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return Message{}, fmt.Errorf("userId and text are required")
	}
	msg := Message{
		ID:     s.store.NewID(),
		ChatID: chatID,
		UserID: userID,
		Text:   text,
		TS:     time.Now().UnixMilli(),
	}
	_, err := s.chats.Mutate(ctx, chatID, func(chat ChatBoard) ChatBoard {
		chat.Messages = append(chat.Messages, msg)
		return chat
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DeleteChat removes one chat board, reporting whether it existed.
func (s *Service) DeleteChat(ctx context.Context, id string) (bool, error) {
	return s.chats.Delete(ctx, id)
}

// DeleteChats removes a batch of chat boards and returns the count deleted.
func (s *Service) DeleteChats(ctx context.Context, ids []string) (int64, error) {
	return s.chats.DeleteMany(ctx, ids)
}

// ChatExists reports whether a chat board is present.
func (s *Service) ChatExists(ctx context.Context, id string) (bool, error) {
	return s.chats.Exists(ctx, id)
}
