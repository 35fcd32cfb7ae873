// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/debugbot/lib/codec"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	conversation TEXT NOT NULL,
	id           TEXT NOT NULL,
	sender       TEXT NOT NULL,
	timestamp    INTEGER NOT NULL,
	act          TEXT NOT NULL,
	payload      BLOB NOT NULL,
	PRIMARY KEY (conversation, id)
);
CREATE INDEX IF NOT EXISTS messages_by_time ON messages (conversation, timestamp, id);
`

// Config holds the parameters for Open.
type Config struct {
	// Path is the database file or sqlitepool.Memory.
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// Store is a SQLite-backed message log. Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens (creating if needed) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("log store: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Append stores message and reports whether it was new.
func (s *Store) Append(ctx context.Context, message convlog.Message) (bool, error) {
	inserted := false
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		var err error
		inserted, err = insertMessage(conn, message)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("log store: %w", err)
	}
	if inserted {
		s.logger.Debug("message stored",
			"conversation_id", message.Conversation,
			"message_id", message.ID,
			"act", message.Act,
		)
	}
	return inserted, nil
}

// AppendAll stores messages in one transaction and returns how many
// were new. Any invalid message aborts the whole batch.
func (s *Store) AppendAll(ctx context.Context, messages []convlog.Message) (count int, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("log store: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("log store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for _, message := range messages {
		inserted, insertErr := insertMessage(conn, message)
		if insertErr != nil {
			return 0, fmt.Errorf("log store: %w", insertErr)
		}
		if inserted {
			count++
		}
	}
	return count, nil
}

func insertMessage(conn *sqlite.Conn, message convlog.Message) (bool, error) {
	if err := message.Validate(); err != nil {
		return false, err
	}
	if message.Conversation.IsZero() {
		return false, fmt.Errorf("message %s has no conversation", message.ID)
	}
	payload, err := codec.Marshal(message)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", message.ID, err)
	}
	err = sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO messages (conversation, id, sender, timestamp, act, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			message.Conversation.String(),
			message.ID.String(),
			message.Sender.String(),
			message.Timestamp.UnixNano(),
			message.Act.String(),
			payload,
		}})
	if err != nil {
		return false, fmt.Errorf("inserting %s: %w", message.ID, err)
	}
	return conn.Changes() > 0, nil
}

// Messages returns the conversation's messages in canonical order.
func (s *Store) Messages(ctx context.Context, conversation ref.ConversationID) ([]convlog.Message, error) {
	var messages []convlog.Message
	err := s.Walk(ctx, conversation, func(message convlog.Message) error {
		messages = append(messages, message)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Walk visits the conversation's messages in canonical order, one row
// at a time. It stops when ctx ends or visit returns an error.
func (s *Store) Walk(ctx context.Context, conversation ref.ConversationID, visit func(convlog.Message) error) error {
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT payload FROM messages WHERE conversation = ? ORDER BY timestamp, id`,
			&sqlitex.ExecOptions{
				Args: []any{conversation.String()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if err := ctx.Err(); err != nil {
						return err
					}
					payload := make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, payload)
					var message convlog.Message
					if err := codec.Unmarshal(payload, &message); err != nil {
						return fmt.Errorf("decoding stored message: %w", err)
					}
					return visit(message)
				},
			})
	})
	if err != nil {
		return fmt.Errorf("log store: reading %s: %w", conversation, err)
	}
	return nil
}

// Count returns the number of stored messages in the conversation.
func (s *Store) Count(ctx context.Context, conversation ref.ConversationID) (int, error) {
	count := 0
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT COUNT(*) FROM messages WHERE conversation = ?`,
			&sqlitex.ExecOptions{
				Args: []any{conversation.String()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					count = stmt.ColumnInt(0)
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("log store: counting %s: %w", conversation, err)
	}
	return count, nil
}

// Conversations lists every conversation with at least one message.
func (s *Store) Conversations(ctx context.Context) ([]ref.ConversationID, error) {
	var conversations []ref.ConversationID
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT DISTINCT conversation FROM messages ORDER BY conversation`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					conversation, err := ref.ParseConversationID(stmt.ColumnText(0))
					if err != nil {
						return err
					}
					conversations = append(conversations, conversation)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("log store: listing conversations: %w", err)
	}
	return conversations, nil
}
