// Package mongostore implements the chat Store on MongoDB. Users embed their
// conversation references; conversations embed their message history so an
// append is a single-document $push.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
)

type Store struct {
	client        *mongo.Client
	users         *mongo.Collection
	conversations *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:        client,
		users:         db.Collection(usersCollection),
		conversations: db.Collection(conversationsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}
	if _, err := s.users.Indexes().CreateOne(ctx, unique("email")); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := s.conversations.Indexes().CreateOne(ctx, unique("conversationId")); err != nil {
		return fmt.Errorf("conversations index: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.users.InsertOne(ctx, toUserDoc(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, email string) (models.User, error) {
	var d userDoc
	opts := options.FindOne().SetProjection(bson.D{{Key: "conversations", Value: 0}})
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, common.ErrorNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return d.model(), nil
}

// prefixFilter matches emails starting with prefix, ignoring case.
func prefixFilter(prefix string) bson.D {
	return bson.D{{Key: "email", Value: bson.Regex{
		Pattern: "^" + regexp.QuoteMeta(strings.ToLower(prefix)),
		Options: "i",
	}}}
}

func (s *Store) SearchUsers(ctx context.Context, prefix string) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "email", Value: 1}}).
		SetProjection(bson.D{{Key: "conversations", Value: 0}})

	cur, err := s.users.Find(ctx, prefixFilter(prefix), opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := make([]models.User, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.model())
	}
	return result, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv models.Conversation, refs ...models.OwnedRef) (bool, error) {
	filter := bson.D{{Key: "conversationId", Value: conv.ID}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "participants", Value: bson.A{conv.Participants[0], conv.Participants[1]}},
		{Key: "messages", Value: bson.A{}},
	}}}

	created := true
	res, err := s.conversations.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	switch {
	// a concurrent upsert of the same id lost the race on the unique index
	case mongo.IsDuplicateKeyError(err):
		created = false
	case err != nil:
		return false, fmt.Errorf("db error: %w", err)
	case res.UpsertedCount == 0:
		created = false
	}

	// References are written on every call and skipped when already present,
	// so a call interrupted between the upsert and the pushes is repaired by
	// the next one.
	for _, r := range refs {
		f, u := refPush(r)
		if _, err := s.users.UpdateOne(ctx, f, u); err != nil {
			return created, fmt.Errorf("db error: %w", err)
		}
	}
	return created, nil
}

// refPush appends r to its owner's references unless one with the same
// conversation id is already there.
func refPush(r models.OwnedRef) (filter, update bson.D) {
	filter = bson.D{
		{Key: "email", Value: r.Owner},
		{Key: "conversations.conversationId", Value: bson.D{{Key: "$ne", Value: r.Ref.ConversationID}}},
	}
	update = bson.D{{Key: "$push", Value: bson.D{{Key: "conversations", Value: refDoc{
		ConversationID: r.Ref.ConversationID,
		DisplayName:    r.Ref.DisplayName,
	}}}}}
	return filter, update
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var d conversationDoc
	opts := options.FindOne().SetProjection(bson.D{{Key: "messages", Value: 0}})
	if err := s.conversations.FindOne(ctx, bson.D{{Key: "conversationId", Value: id}}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Conversation{}, common.ErrorNotFound
		}
		return models.Conversation{}, fmt.Errorf("db error: %w", err)
	}
	return d.model(), nil
}

func (s *Store) ListConversationRefs(ctx context.Context, email string) ([]models.ConversationRef, error) {
	var d userDoc
	opts := options.FindOne().SetProjection(bson.D{{Key: "conversations", Value: 1}})
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := make([]models.ConversationRef, 0, len(d.Conversations))
	for _, r := range d.Conversations {
		result = append(result, models.ConversationRef{ConversationID: r.ConversationID, DisplayName: r.DisplayName})
	}
	return result, nil
}

func (s *Store) AppendMessage(ctx context.Context, m models.Message) error {
	doc, ok := toMessageDoc(m)
	if !ok {
		return fmt.Errorf("%w: unsupported message content %T", common.ErrorValidation, m.Content)
	}

	res, err := s.conversations.UpdateOne(ctx,
		bson.D{{Key: "conversationId", Value: m.ConversationID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "messages", Value: doc}}}},
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (s *Store) loadMessages(ctx context.Context, conversationID string) ([]messageDoc, error) {
	var d conversationDoc
	opts := options.FindOne().SetProjection(bson.D{{Key: "messages", Value: 1}})
	if err := s.conversations.FindOne(ctx, bson.D{{Key: "conversationId", Value: conversationID}}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d.Messages, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	docs, err := s.loadMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.model(conversationID))
	}
	return result, nil
}

func (s *Store) ListFileNames(ctx context.Context, conversationID string) ([]string, error) {
	docs, err := s.loadMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fileNames(docs), nil
}

func (s *Store) FindFile(ctx context.Context, conversationID, name string) (models.Message, error) {
	docs, err := s.loadMessages(ctx, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	d, ok := lastFile(docs, name)
	if !ok {
		return models.Message{}, common.ErrorNotFound
	}
	return d.model(conversationID), nil
}

func fileNames(docs []messageDoc) []string {
	var names []string
	for _, d := range docs {
		if d.Type == string(models.KindFile) {
			names = append(names, d.FileName)
		}
	}
	return names
}

func lastFile(docs []messageDoc, name string) (messageDoc, bool) {
	for i := len(docs) - 1; i >= 0; i-- {
		if docs[i].Type == string(models.KindFile) && docs[i].FileName == name {
			return docs[i], true
		}
	}
	return messageDoc{}, false
}
