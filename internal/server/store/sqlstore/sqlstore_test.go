package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
	"github.com/dmitrijs2005/gophchat/internal/server/store/storetest"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ store.Store = (*Store)(nil)

var dbSeq atomic.Int64

func openSQLite(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:sqlstore_%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := Open(context.Background(), DialectSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openSQLite(t) })
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
}

func TestOpen_SQLiteFileCreatesDir(t *testing.T) {
	path := t.TempDir() + "/nested/chat.db"
	s, err := Open(context.Background(), DialectSQLite, path)
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.CreateUser(context.Background(), models.User{Email: "a@x.com", FullName: "A", PasswordHash: "h"}))
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, DialectSQLite)
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `al%`, likePrefix("AL"))
	assert.Equal(t, `a\_b\%c\\%`, likePrefix(`a_b%c\`))
}

func TestRunMigrations_Seam(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, New(db, DialectPostgres).RunMigrations(context.Background()))
	assert.Equal(t, "postgres", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	err = New(db, DialectSQLite).RunMigrations(context.Background())
	require.EqualError(t, err, "boom")
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, DialectPostgres), mock
}

func requireDBError(t *testing.T, err error, cause string) {
	t.Helper()
	if err == nil || !regexp.MustCompile(`db error: .*`+cause).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestCreateUser_Postgres(t *testing.T) {
	s, mock := newMockStore(t)
	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*full_name,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s+\(email\)\s+DO\s+NOTHING$`

	mock.ExpectExec(q).WithArgs("a@x.com", "A", "h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("a@x.com", "A", "h").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("a@x.com", "A", "h").WillReturnError(errors.New("db down"))

	u := models.User{Email: "a@x.com", FullName: "A", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.ErrorIs(t, s.CreateUser(context.Background(), u), common.ErrorAlreadyExists)
	requireDBError(t, s.CreateUser(context.Background(), u), "db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_Errors(t *testing.T) {
	s, mock := newMockStore(t)
	q := `SELECT email, full_name, password_hash FROM users WHERE email = \$1`

	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("a").WillReturnError(errors.New("db err"))

	_, err := s.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.GetUser(context.Background(), "a")
	requireDBError(t, err, "db err")
}

func TestSearchUsers_Errors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM users`).WithArgs("al%").WillReturnError(errors.New("db err"))
	_, err := s.SearchUsers(context.Background(), "al")
	requireDBError(t, err, "db err")

	mock.ExpectQuery(`FROM users`).WithArgs("al%").
		WillReturnRows(sqlmock.NewRows([]string{"email", "full_name", "password_hash"}).
			AddRow("al@x.com", "Al", "h").
			RowError(0, errors.New("row broke")))
	_, err = s.SearchUsers(context.Background(), "al")
	requireDBError(t, err, "row broke")
}

func TestCreateConversation_Postgres(t *testing.T) {
	s, mock := newMockStore(t)
	conv := models.NewConversation("a@x.com", "b@y.com")
	ref := models.OwnedRef{Owner: "a@x.com", Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: "B"}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO conversations`).WithArgs(conv.ID, "a@x.com", "b@y.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO conversation_refs`).WithArgs("a@x.com", conv.ID, "B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := s.CreateConversation(context.Background(), conv, ref)
	require.NoError(t, err)
	assert.True(t, created)

	// existing conversation: no refs written
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO conversations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err = s.CreateConversation(context.Background(), conv, ref)
	require.NoError(t, err)
	assert.False(t, created)

	// failing ref insert rolls the conversation back
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO conversations`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO conversation_refs`).WillReturnError(errors.New("fk"))
	mock.ExpectRollback()

	created, err = s.CreateConversation(context.Background(), conv, ref)
	requireDBError(t, err, "fk")
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConversation_Errors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM conversations WHERE id = \$1`).WillReturnError(sql.ErrNoRows)
	_, err := s.GetConversation(context.Background(), "x")
	require.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(`FROM conversations`).WillReturnError(errors.New("db err"))
	_, err = s.GetConversation(context.Background(), "x")
	requireDBError(t, err, "db err")
}

func TestListConversationRefs_Error(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM conversation_refs`).WillReturnError(errors.New("db err"))
	_, err := s.ListConversationRefs(context.Background(), "a@x.com")
	requireDBError(t, err, "db err")
}

func TestAppendMessage_Postgres(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.UnixMilli(1_700_000_000_123)

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("a_b", "a", at.UnixMilli(), "A sent a message", "text",
			sql.NullString{}, []byte("ct"), sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs("a_b", "a", at.UnixMilli(), "A shared a file: f", "file",
			sql.NullString{String: "f", Valid: true}, []byte(nil), sql.NullString{String: "files/k", Valid: true}).
		WillReturnError(errors.New("disk full"))

	require.NoError(t, s.AppendMessage(context.Background(), models.Message{
		ConversationID: "a_b", Sender: "a", CreatedAt: at,
		Summary: "A sent a message", Content: models.TextContent{Ciphertext: []byte("ct")},
	}))

	err := s.AppendMessage(context.Background(), models.Message{
		ConversationID: "a_b", Sender: "a", CreatedAt: at,
		Summary: "A shared a file: f", Content: models.FileContent{FileName: "f", StorageKey: "files/k"},
	})
	requireDBError(t, err, "disk full")

	err = s.AppendMessage(context.Background(), models.Message{ConversationID: "a_b"})
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestListMessages_Errors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM messages`).WillReturnError(errors.New("db err"))
	_, err := s.ListMessages(context.Background(), "a_b")
	requireDBError(t, err, "db err")

	mock.ExpectQuery(`FROM messages`).WillReturnRows(
		sqlmock.NewRows([]string{"sender", "created_at", "summary", "kind", "file_name", "ciphertext", "storage_key"}).
			AddRow("a", "not-a-number", "s", "text", nil, []byte("x"), nil))
	_, err = s.ListMessages(context.Background(), "a_b")
	require.Error(t, err)
}

func TestFileQueries_Errors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT file_name FROM messages`).WillReturnError(errors.New("db err"))
	_, err := s.ListFileNames(context.Background(), "a_b")
	requireDBError(t, err, "db err")

	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs("a_b", "f").WillReturnError(sql.ErrNoRows)
	_, err = s.FindFile(context.Background(), "a_b", "f")
	require.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(`ORDER BY id DESC`).WithArgs("a_b", "f").WillReturnError(errors.New("db err"))
	_, err = s.FindFile(context.Background(), "a_b", "f")
	requireDBError(t, err, "db err")
}
