package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

func (s *Store) CreateConversation(ctx context.Context, conv models.Conversation, refs ...models.OwnedRef) (bool, error) {
	insertConv := s.rebind(`INSERT INTO conversations (id, participant_a, participant_b)
		 VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`)
	insertRef := s.rebind(`INSERT INTO conversation_refs (owner_email, conversation_id, display_name)
		 VALUES (?, ?, ?)
		 ON CONFLICT (owner_email, conversation_id) DO NOTHING`)

	created := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := dbx.ExecAffected(ctx, tx, insertConv, conv.ID, conv.Participants[0], conv.Participants[1])
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		for _, r := range refs {
			if _, err := tx.ExecContext(ctx, insertRef, r.Owner, r.Ref.ConversationID, r.Ref.DisplayName); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	query := `SELECT id, participant_a, participant_b FROM conversations WHERE id = ?`

	var c models.Conversation
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(&c.ID, &c.Participants[0], &c.Participants[1])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, common.ErrorNotFound
		}
		return models.Conversation{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (s *Store) ListConversationRefs(ctx context.Context, email string) ([]models.ConversationRef, error) {
	query := `SELECT conversation_id, display_name FROM conversation_refs
		 WHERE owner_email = ?
		 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), email)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.ConversationRef
	for rows.Next() {
		var r models.ConversationRef
		if err := rows.Scan(&r.ConversationID, &r.DisplayName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
