package store

import (
	"context"
	"fmt"
	"time"
)

// Chat exchange methods
func (s *Store) CreateChatMessage(ctx context.Context, msg *ChatMessage) error {
	defer s.track("create_chat_message")()

	if msg.SessionID == "" {
		return fmt.Errorf("chat message requires a session id")
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ChatHistory returns the exchanges of one session, oldest first.
func (s *Store) ChatHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	defer s.track("chat_history")()

	var messages []ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	return messages, nil
}

// ClearChatSession deletes every exchange of one session and reports how many went.
func (s *Store) ClearChatSession(ctx context.Context, sessionID string) (int64, error) {
	defer s.track("clear_chat_session")()

	res := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&ChatMessage{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear chat session: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Search log methods
func (s *Store) CreateSearchLog(ctx context.Context, entry *SearchLog) error {
	defer s.track("create_search_log")()

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert search log: %w", err)
	}
	return nil
}

// PopularSearches groups the queries logged since the given time by count, most frequent first.
func (s *Store) PopularSearches(ctx context.Context, since time.Time, limit int) ([]PopularSearch, error) {
	defer s.track("popular_searches")()

	if limit <= 0 {
		return []PopularSearch{}, nil
	}
	var out []PopularSearch
	err := s.db.WithContext(ctx).Model(&SearchLog{}).
		Select("query_text AS query, COUNT(id) AS count").
		Where("created_at >= ?", since.UTC()).
		Group("query_text").
		Order("count DESC").Order("query_text ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular searches: %w", err)
	}
	if out == nil {
		out = []PopularSearch{}
	}
	return out, nil
}
