package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO users (email, full_name, password_hash)
		 VALUES (?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`

	n, err := dbx.ExecAffected(ctx, s.db, s.rebind(query), u.Email, u.FullName, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, email string) (models.User, error) {
	query := `SELECT email, full_name, password_hash FROM users WHERE email = ?`

	var u models.User
	err := s.db.QueryRowContext(ctx, s.rebind(query), email).Scan(&u.Email, &u.FullName, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, common.ErrorNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *Store) SearchUsers(ctx context.Context, prefix string) ([]models.User, error) {
	query := `SELECT email, full_name, password_hash FROM users
		 WHERE lower(email) LIKE ? ESCAPE '\'
		 ORDER BY email`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Email, &u.FullName, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(strings.ToLower(prefix)) + "%"
}
