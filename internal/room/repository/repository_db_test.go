package repository

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
	"github.com/tnptm/next-djchat/internal/testutil"
)

type roomStore interface {
	Create(ctx context.Context, room *roomDomain.Room) error
	Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error)
}

type membershipStore interface {
	CreateIfNotExists(ctx context.Context, membership *roomDomain.Membership) (bool, error)
	Count(ctx context.Context, roomID uuid.UUID) (int, error)
}

var dbDrivers = []struct {
	name        string
	driver      string
	rooms       func(db *sql.DB) roomStore
	memberships func(db *sql.DB) membershipStore
}{
	{
		name:        "PostgreSQL",
		driver:      "postgres",
		rooms:       func(db *sql.DB) roomStore { return NewPostgreSQLRoomRepository(db) },
		memberships: func(db *sql.DB) membershipStore { return NewPostgreSQLMembershipRepository(db) },
	},
	{
		name:        "MySQL",
		driver:      "mysql",
		rooms:       func(db *sql.DB) roomStore { return NewMySQLRoomRepository(db) },
		memberships: func(db *sql.DB) membershipStore { return NewMySQLMembershipRepository(db) },
	},
}

func createStoredRoom(t *testing.T, rooms roomStore, ownerID uuid.UUID, description *string) *roomDomain.Room {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	room := &roomDomain.Room{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        "Team Chat",
		Description: description,
		Visibility:  roomDomain.Private,
		OwnerID:     ownerID,
		KeyEnvelope: []byte("envelope"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, rooms.Create(context.Background(), room))
	return room
}

func TestRoomRepository_Database_DescriptionOptional(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	for _, tc := range dbDrivers {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.SetupDB(t, tc.driver)
			defer testutil.TeardownDB(t, db)

			rooms := tc.rooms(db)
			ownerID := testutil.CreateTestUser(t, db, tc.driver, "alice")

			withoutDescription := createStoredRoom(t, rooms, ownerID, nil)
			got, err := rooms.Get(context.Background(), withoutDescription.ID)
			require.NoError(t, err)
			assert.Nil(t, got.Description)
			assert.Equal(t, "alice", got.OwnerUsername)

			description := "weekly sync"
			withDescription := createStoredRoom(t, rooms, ownerID, &description)
			got, err = rooms.Get(context.Background(), withDescription.ID)
			require.NoError(t, err)
			require.NotNil(t, got.Description)
			assert.Equal(t, description, *got.Description)
		})
	}
}

func TestMembershipRepository_Database_ConcurrentCreateIfNotExists(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	const attempts = 8

	for _, tc := range dbDrivers {
		t.Run(tc.name, func(t *testing.T) {
			db := testutil.SetupDB(t, tc.driver)
			defer testutil.TeardownDB(t, db)

			ownerID := testutil.CreateTestUser(t, db, tc.driver, "alice")
			inviteeID := testutil.CreateTestUser(t, db, tc.driver, "bob")
			room := createStoredRoom(t, tc.rooms(db), ownerID, nil)

			memberships := tc.memberships(db)
			ctx := context.Background()
			created, err := memberships.CreateIfNotExists(ctx, &roomDomain.Membership{
				ID:       uuid.Must(uuid.NewV7()),
				RoomID:   room.ID,
				UserID:   ownerID,
				JoinedAt: room.CreatedAt,
			})
			require.NoError(t, err)
			require.True(t, created)

			var inserted atomic.Int32
			var g errgroup.Group
			for range attempts {
				g.Go(func() error {
					created, err := memberships.CreateIfNotExists(ctx, &roomDomain.Membership{
						ID:        uuid.Must(uuid.NewV7()),
						RoomID:    room.ID,
						UserID:    inviteeID,
						InvitedBy: &ownerID,
						JoinedAt:  time.Now().UTC(),
					})
					if created {
						inserted.Add(1)
					}
					return err
				})
			}
			require.NoError(t, g.Wait())

			assert.Equal(t, int32(1), inserted.Load())
			count, err := memberships.Count(ctx, room.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, count)
		})
	}
}
