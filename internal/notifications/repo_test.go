package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/datavend-backend/pkg/db/dbtest"
	"github.com/angelmondragon/datavend-backend/pkg/db/models"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
)

func TestRepositoryReadLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			UserID:    user,
			Type:      enums.NotificationTypeWallet,
			Title:     "Wallet topped up",
			Message:   "added",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Notification{UserID: uuid.New(), Type: enums.NotificationTypeSystem, Title: "other", Message: "other"}))

	page, err := svc.List(ctx, ListParams{UserID: user, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Unread)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, ListParams{UserID: user, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	require.NoError(t, svc.MarkRead(ctx, user, page.Items[0].ID))
	require.NoError(t, svc.MarkRead(ctx, user, page.Items[0].ID))
	assert.Error(t, svc.MarkRead(ctx, uuid.New(), page.Items[0].ID))

	count, err := svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := svc.List(ctx, ListParams{UserID: user, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)

	removed, err := repo.DeleteReadBefore(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
