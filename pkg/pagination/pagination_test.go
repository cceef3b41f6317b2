package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/datavend-backend/pkg/db/dbtest"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
	assert.NotContains(t, EncodeCursor(in), "=")
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"not-base64!", EncodeCursor(Cursor{})[:4], "bm8tc2VwYXJhdG9y"} {
		_, err := ParseCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidCursor, bad)
	}

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 7, NormalizeLimit(7))
}

type row struct {
	at time.Time
	id uuid.UUID
}

func TestBuildPageTrimsLookAhead(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{at: base.Add(3 * time.Minute), id: uuid.New()},
		{at: base.Add(2 * time.Minute), id: uuid.New()},
		{at: base.Add(1 * time.Minute), id: uuid.New()},
	}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:1], 2, cursorOf)
	assert.Empty(t, last.NextCursor)
	assert.NotNil(t, BuildPage[row](nil, 2, cursorOf).Items)
}

type pageRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

func TestKeysetWalksPages(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Exec(`CREATE TABLE page_rows (id TEXT PRIMARY KEY, created_at DATETIME)`).Error)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, conn.Create(&pageRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
	}
	cursorOf := func(r pageRow) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

	var seen []time.Time
	params := Params{Limit: 2}
	for pages := 0; pages < 5; pages++ {
		var rows []pageRow
		require.NoError(t, conn.Scopes(Keyset(params, "created_at")).Find(&rows).Error)
		page := BuildPage(rows, params.Limit, cursorOf)
		for _, r := range page.Items {
			seen = append(seen, r.CreatedAt.UTC())
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}

	require.Len(t, seen, 5)
	for i, at := range seen {
		assert.True(t, at.Equal(base.Add(time.Duration(4-i)*time.Minute)), "row %d at %s", i, at)
	}

	var rows []pageRow
	err := conn.Scopes(Keyset(Params{Cursor: "%%%"}, "created_at")).Find(&rows).Error
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
