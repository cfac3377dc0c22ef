package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/domain"
)

func TestCreateRejectsDuplicatePair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewConversationRepo(db)
	_, aliceID, bobID := seedPair(t, db)

	// The seed already created the alice/bob conversation. A second create
	// for the same pair must fail on the pair key, in either order.
	err := repo.Create(ctx, &domain.Conversation{}, []int64{aliceID, bobID})
	assert.Error(t, err)

	err = repo.Create(ctx, &domain.Conversation{}, []int64{bobID, aliceID})
	assert.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCreateRequiresExactlyTwoParticipants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewConversationRepo(db)
	_, aliceID, _ := seedPair(t, db)

	assert.Error(t, repo.Create(ctx, &domain.Conversation{}, []int64{aliceID}))
	assert.Error(t, repo.Create(ctx, &domain.Conversation{}, nil))
}

func TestFindDirectIsOrderIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewConversationRepo(db)
	convID, aliceID, bobID := seedPair(t, db)

	found, err := repo.FindDirect(ctx, aliceID, bobID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, convID, found.ID)

	reversed, err := repo.FindDirect(ctx, bobID, aliceID)
	require.NoError(t, err)
	require.NotNil(t, reversed)
	assert.Equal(t, convID, reversed.ID)

	missing, err := repo.FindDirect(ctx, aliceID, aliceID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
