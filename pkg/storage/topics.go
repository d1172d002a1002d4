package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Topic is a discussion topic row.
type Topic struct {
	ID        int64
	UserID    int64
	Title     string
	Body      string
	Category  string
	CreatedAt time.Time
}

const topicColumns = "topic_id, user_id, title, body, category, created_at"

// TopicStore persists discussion topics. It carries no auth logic; handlers
// in pkg/api combine it with the identity gate.
type TopicStore struct {
	db *sql.DB
}

// NewTopicStore creates a topic store on an open database handle.
func NewTopicStore(db *sql.DB) *TopicStore {
	return &TopicStore{db: db}
}

func scanTopic(row *sql.Row) (*Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Body, &t.Category, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	return &t, nil
}

// Get fetches a topic by id. Returns (nil, nil) when absent.
func (s *TopicStore) Get(ctx context.Context, id int64) (*Topic, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+topicColumns+" FROM topics WHERE topic_id = $1", id)
	return scanTopic(row)
}

// List returns topics newest first, optionally filtered by category.
func (s *TopicStore) List(ctx context.Context, category string, limit, offset int) ([]*Topic, error) {
	query := "SELECT " + topicColumns + " FROM topics"
	args := []interface{}{}
	if category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []*Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Body, &t.Category, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// Create inserts a topic and returns the stored row.
func (s *TopicStore) Create(ctx context.Context, userID int64, title, body, category string) (*Topic, error) {
	t := &Topic{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Category: category,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO topics (user_id, title, body, category, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING topic_id, created_at
	`, userID, title, body, category).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return t, nil
}

// Update rewrites a topic's content when userID owns it. Returns (nil, nil)
// when the topic is absent or owned by someone else.
func (s *TopicStore) Update(ctx context.Context, id, userID int64, title, body, category string) (*Topic, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE topics
		SET title = $1, body = $2, category = $3
		WHERE topic_id = $4 AND user_id = $5
		RETURNING `+topicColumns,
		title, body, category, id, userID)
	return scanTopic(row)
}

// Delete removes a topic owned by userID. Reports whether a row was deleted.
func (s *TopicStore) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM topics WHERE topic_id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	return n == 1, nil
}

// Count returns the total number of topics.
func (s *TopicStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&n); err != nil {
		return 0, fmt.Errorf("count topics: %w", err)
	}
	return n, nil
}

// CountByUser returns the number of topics created by a user.
func (s *TopicStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM topics WHERE user_id = $1", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count topics by user: %w", err)
	}
	return n, nil
}
