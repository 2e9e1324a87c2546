package memory

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
	"github.com/dmitrijs2005/gophchat/internal/server/store/storetest"
	"github.com/stretchr/testify/require"
)

var _ store.Store = (*Store)(nil)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestAppendMessage_UnknownConversation(t *testing.T) {
	s := New()
	err := s.AppendMessage(context.Background(), models.Message{ConversationID: "a_b"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}
