package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gwi.com/shop-assistant/internal/apperr"
	"gwi.com/shop-assistant/internal/logger"
	"gwi.com/shop-assistant/internal/metrics"
	"gwi.com/shop-assistant/internal/store"
)

const chatCandidateLimit = 10

// ChatStore is what the assistant needs from the catalog store.
type ChatStore interface {
	ProductFinder
	ListCategories(ctx context.Context, f store.CategoryFilter) ([]store.Category, error)
	CreateChatMessage(ctx context.Context, msg *store.ChatMessage) error
	ChatHistory(ctx context.Context, sessionID string) ([]store.ChatMessage, error)
	ClearChatSession(ctx context.Context, sessionID string) (int64, error)
}

type ChatRequest struct {
	Message   string
	SessionID string // empty starts a new session
}

type ChatReply struct {
	SessionID      string          `json:"session_id"`
	BotResponse    string          `json:"bot_response"`
	Intent         Intent          `json:"intent"`
	MessageID      *uint           `json:"message_id"` // nil when the exchange could not be stored
	Products       []store.Product `json:"products"`
	FiltersApplied MessageContext  `json:"filters_applied"`
	ReplySource    ReplySource     `json:"reply_source"`
}

// chatContextData is persisted alongside each exchange.
type chatContextData struct {
	Filters     MessageContext `json:"filters"`
	ProductIDs  []uint         `json:"product_ids"`
	ReplySource ReplySource    `json:"reply_source"`
}

type ChatService struct {
	store    ChatStore
	composer *Composer
	log      *logger.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

func NewChatService(st ChatStore, composer *Composer, log *logger.Logger, m *metrics.Metrics) *ChatService {
	return &ChatService{
		store:    st,
		composer: composer,
		log:      log.With("service", "ChatService"),
		metrics:  m,
		newID:    uuid.NewString,
	}
}

// ProcessMessage answers one chat message. Only an empty message is an error; store
// and generator failures degrade the reply instead.
func (s *ChatService) ProcessMessage(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.Validation("Message cannot be empty")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = s.newID()
	}

	mctx := ExtractContext(message)
	candidates := s.candidates(ctx, mctx)

	in := ReplyInput{Message: message, Context: mctx, Candidates: candidates}
	if len(candidates) == 0 {
		in.Categories = s.rootCategoryNames(ctx)
	}
	reply, source := s.composer.Compose(ctx, in)
	s.metrics.RecordChatReply(string(source))

	return &ChatReply{
		SessionID:      sessionID,
		BotResponse:    reply,
		Intent:         mctx.Intent,
		MessageID:      s.record(ctx, sessionID, message, reply, mctx, candidates, source),
		Products:       candidates,
		FiltersApplied: mctx,
		ReplySource:    source,
	}, nil
}

func (s *ChatService) candidates(ctx context.Context, mctx MessageContext) []store.Product {
	q := store.ProductQuery{
		CategoryName: mctx.Category,
		SortBy:       store.SortName,
		SortOrder:    store.Asc,
		Page:         1,
		PerPage:      chatCandidateLimit,
	}
	if r := mctx.PriceRange; r != nil {
		lo, hi := r.Min, r.Max
		q.MinPrice, q.MaxPrice = &lo, &hi
	}

	products, _, err := s.store.FindProducts(ctx, q)
	if err != nil {
		s.log.Warn("Candidate product lookup failed, replying without products", "error", err)
		return []store.Product{}
	}
	return nonNilProducts(products)
}

func (s *ChatService) rootCategoryNames(ctx context.Context) []string {
	roots, err := s.store.ListCategories(ctx, store.CategoryFilter{ActiveOnly: true})
	if err != nil {
		s.log.Warn("Root category lookup failed, using default category list", "error", err)
		return nil
	}
	names := make([]string, 0, len(roots))
	for _, c := range roots {
		names = append(names, c.Name)
	}
	return names
}

func (s *ChatService) record(ctx context.Context, sessionID, message, reply string, mctx MessageContext, candidates []store.Product, source ReplySource) *uint {
	data := chatContextData{Filters: mctx, ProductIDs: make([]uint, 0, len(candidates)), ReplySource: source}
	for _, p := range candidates {
		data.ProductIDs = append(data.ProductIDs, p.ID)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Warn("Failed to encode chat context data", "error", err)
		raw = nil
	}

	msg := &store.ChatMessage{
		SessionID:   sessionID,
		UserMessage: message,
		BotResponse: reply,
		Intent:      string(mctx.Intent),
		ContextData: datatypes.JSON(raw),
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		s.log.Warn("Failed to store chat exchange", "session_id", sessionID, "error", err)
		s.metrics.RecordBestEffortFailure("chat_message")
		return nil
	}
	return &msg.ID
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]store.ChatMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Validation("session_id is required")
	}
	messages, err := s.store.ChatHistory(ctx, sessionID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}
	return messages, nil
}

// Clear deletes a session's exchanges and reports how many were removed.
func (s *ChatService) Clear(ctx context.Context, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, apperr.Validation("session_id is required")
	}
	n, err := s.store.ClearChatSession(ctx, sessionID)
	if err != nil {
		return 0, storeUnavailable(err)
	}
	return n, nil
}
