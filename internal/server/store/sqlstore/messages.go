package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

const messageColumns = `sender, created_at, summary, kind, file_name, ciphertext, storage_key`

func (s *Store) AppendMessage(ctx context.Context, m models.Message) error {
	query := `INSERT INTO messages (conversation_id, ` + messageColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var (
		fileName, storageKey sql.NullString
		ciphertext           []byte
	)
	switch c := m.Content.(type) {
	case models.TextContent:
		ciphertext = c.Ciphertext
	case models.FileContent:
		fileName = sql.NullString{String: c.FileName, Valid: true}
		storageKey = sql.NullString{String: c.StorageKey, Valid: c.StorageKey != ""}
		ciphertext = c.Ciphertext
	default:
		return fmt.Errorf("%w: unsupported message content %T", common.ErrorValidation, m.Content)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		m.ConversationID, m.Sender, m.CreatedAt.UnixMilli(), m.Summary,
		string(m.Content.Kind()), fileName, ciphertext, storageKey)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE conversation_id = ?
		 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), conversationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		m, err := scanMessage(rows, conversationID)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (s *Store) ListFileNames(ctx context.Context, conversationID string) ([]string, error) {
	query := `SELECT file_name FROM messages
		 WHERE conversation_id = ? AND kind = 'file'
		 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), conversationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return names, nil
}

func (s *Store) FindFile(ctx context.Context, conversationID, name string) (models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		 WHERE conversation_id = ? AND kind = 'file' AND file_name = ?
		 ORDER BY id DESC
		 LIMIT 1`

	row := s.db.QueryRowContext(ctx, s.rebind(query), conversationID, name)
	m, err := scanMessage(row, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, common.ErrorNotFound
		}
		return models.Message{}, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner, conversationID string) (models.Message, error) {
	var (
		m                    models.Message
		createdAt            int64
		kind                 string
		fileName, storageKey sql.NullString
		ciphertext           []byte
	)
	if err := row.Scan(&m.Sender, &createdAt, &m.Summary, &kind, &fileName, &ciphertext, &storageKey); err != nil {
		return models.Message{}, err
	}

	m.ConversationID = conversationID
	m.CreatedAt = time.UnixMilli(createdAt)
	switch models.MessageKind(kind) {
	case models.KindFile:
		m.Content = models.FileContent{FileName: fileName.String, Ciphertext: ciphertext, StorageKey: storageKey.String}
	default:
		m.Content = models.TextContent{Ciphertext: ciphertext}
	}
	return m, nil
}
