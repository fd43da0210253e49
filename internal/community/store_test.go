package community_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/database"
	"github.com/mauv0809/pickup/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (community.CommunityStore, *sql.DB, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	return community.New(db), db, teardown
}

func createUser(t *testing.T, db *sql.DB, email string) string {
	t.Helper()
	u, err := user.New(db).Create(context.Background(), "Test "+email, email, "hash", 3)
	require.NoError(t, err)
	return u.ID
}

func TestNormalizeInviteCode(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lower case is upper-cased", input: "abc123", want: "ABC123"},
		{name: "whitespace trimmed", input: "  XYZ98765 ", want: "XYZ98765"},
		{name: "too short", input: "ABC12", wantErr: true},
		{name: "too long", input: "ABCDEFGHI", wantErr: true},
		{name: "punctuation", input: "ABC-123", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := community.NormalizeInviteCode(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, community.ErrInvalidInviteCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateAndLookup(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com")

	created, err := store.Create(ctx, community.Community{Name: " Sunday League ", InviteCode: "sunday1", CreatedBy: owner})
	require.NoError(t, err)
	assert.Equal(t, "Sunday League", created.Name)
	assert.Equal(t, "SUNDAY1", created.InviteCode)
	assert.Equal(t, []string{owner}, created.Members)

	byID, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.InviteCode, byID.InviteCode)
	assert.Equal(t, []string{owner}, byID.Members)

	byCode, err := store.GetByInviteCode(ctx, "Sunday1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	_, err = store.GetByInviteCode(ctx, "NOPE99")
	assert.ErrorIs(t, err, community.ErrNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, community.ErrNotFound)

	_, err = store.Create(ctx, community.Community{Name: "Copycat", InviteCode: "SUNDAY1", CreatedBy: owner})
	assert.ErrorIs(t, err, community.ErrInviteCodeTaken)
}

func TestMembership(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")

	created, err := store.Create(ctx, community.Community{Name: "Hoops", InviteCode: "HOOPS1", CreatedBy: owner})
	require.NoError(t, err)

	member, err := store.IsMember(ctx, created.ID, guest)
	require.NoError(t, err)
	assert.False(t, member)

	already, err := store.AddMember(ctx, created.ID, guest)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = store.AddMember(ctx, created.ID, guest)
	require.NoError(t, err)
	assert.True(t, already)

	member, err = store.IsMember(ctx, created.ID, guest)
	require.NoError(t, err)
	assert.True(t, member)

	fetched, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner, guest}, fetched.Members)

	_, err = store.IsMember(ctx, "missing", guest)
	assert.ErrorIs(t, err, community.ErrNotFound)
	_, err = store.AddMember(ctx, "missing", guest)
	assert.ErrorIs(t, err, community.ErrNotFound)
}

func TestListSearch(t *testing.T) {
	store, db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com")

	_, err := store.Create(ctx, community.Community{Name: "Riverside Runners", InviteCode: "RUN001", CreatedBy: owner})
	require.NoError(t, err)
	_, err = store.Create(ctx, community.Community{Name: "Hoops", Description: "Pickup basketball by the river", InviteCode: "HOOP01", CreatedBy: owner})
	require.NoError(t, err)
	_, err = store.Create(ctx, community.Community{Name: "Chess Club", InviteCode: "CHESS1", CreatedBy: owner})
	require.NoError(t, err)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	river, err := store.List(ctx, "RIVER")
	require.NoError(t, err)
	assert.Len(t, river, 2)

	none, err := store.List(ctx, "tennis")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
