package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaperSearchResult is a paper found via embedding similarity.
type PaperSearchResult struct {
	Paper Paper
	Score float32
}

// ChunkSearchResult is a chunk found via embedding similarity, with its
// parent paper's metadata resolved.
type ChunkSearchResult struct {
	Chunk PaperChunk
	Score float32
	Title string
	URL   string
}

// PaperRepository manages persisted papers. The enrichment stage is the
// only writer.
type PaperRepository interface {
	// GetByID returns nil, nil when the paper is not persisted.
	GetByID(ctx context.Context, canonicalID string) (*Paper, error)

	// Insert persists an enriched paper. A concurrent duplicate insert for
	// the same canonical ID is a no-op.
	Insert(ctx context.Context, paper *Paper) error

	// SearchByEmbedding returns the top-limit papers by similarity, scoped
	// to the given user's feed.
	SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]PaperSearchResult, error)
}

// ChunkRepository manages per-paper text chunks.
type ChunkRepository interface {
	BulkInsert(ctx context.Context, chunks []PaperChunk) error

	// SearchByEmbedding returns the top-limit chunks by similarity, scoped
	// to papers in the given user's feed.
	SearchByEmbedding(ctx context.Context, userID string, query []float32, limit int) ([]ChunkSearchResult, error)
}

// UserRepository manages user profiles and their cached query profiles.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, userID string) (*User, error)
	List(ctx context.Context) ([]User, error)
	// UpdateInterests replaces the user's interest text and, when non-empty,
	// their domains.
	UpdateInterests(ctx context.Context, userID, interestText string, domains []string) error
	// SaveProfile caches a user's optimized query profile.
	SaveProfile(ctx context.Context, userID string, profile QueryProfile) error
}

// FeedEntry is a feed item joined with its paper for presentation.
type FeedEntry struct {
	Item  FeedItem
	Paper Paper
}

// FeedRepository manages personalized feeds. Insert is idempotent: a
// duplicate (user_id, paper_id) insert is a success no-op.
type FeedRepository interface {
	Insert(ctx context.Context, item FeedItem) error
	ListForUser(ctx context.Context, userID string, limit int) ([]FeedEntry, error)
	// Titles returns paper_id -> title for every paper in the user's feed.
	Titles(ctx context.Context, userID string) (map[string]string, error)
	SetSaved(ctx context.Context, itemID uuid.UUID, saved bool) error
}

// Chat is a persistent conversation.
type Chat struct {
	ID        uuid.UUID
	UserID    string
	Title     string
	Starred   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one message within a chat.
type ChatMessage struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Role      string // "user" | "ai"
	Content   string
	Sources   []string // canonical paper IDs cited by an ai message
	CreatedAt time.Time
}

// ChatRepository manages chats and their messages.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *Chat) error
	// GetChat returns nil, nil when not found.
	GetChat(ctx context.Context, chatID uuid.UUID) (*Chat, error)
	ListChats(ctx context.Context, userID string) ([]Chat, error)
	UpdateChat(ctx context.Context, chatID uuid.UUID, title *string, starred *bool) error
	DeleteChat(ctx context.Context, chatID uuid.UUID) error
	AddMessage(ctx context.Context, msg *ChatMessage) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]ChatMessage, error)
}

// TransactionManager executes a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
