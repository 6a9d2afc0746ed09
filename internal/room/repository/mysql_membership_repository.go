package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// MySQLMembershipRepository implements Membership persistence for MySQL databases.
type MySQLMembershipRepository struct {
	db *sql.DB
}

// NewMySQLMembershipRepository creates a new MySQL Membership repository instance.
func NewMySQLMembershipRepository(db *sql.DB) *MySQLMembershipRepository {
	return &MySQLMembershipRepository{db: db}
}

// CreateIfNotExists inserts the membership unless the (room, user) pair already exists.
// The no-op update on duplicate key reports zero affected rows, so only the inserting
// caller sees true.
func (m *MySQLMembershipRepository) CreateIfNotExists(
	ctx context.Context,
	membership *roomDomain.Membership,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := membership.ID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal membership id")
	}
	roomID, err := membership.RoomID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal room id")
	}
	userID, err := membership.UserID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal user id")
	}

	var invitedBy []byte
	if membership.InvitedBy != nil {
		if invitedBy, err = membership.InvitedBy.MarshalBinary(); err != nil {
			return false, apperrors.Wrap(err, "failed to marshal inviter id")
		}
	}

	query := `INSERT INTO memberships (id, room_id, user_id, invited_by, joined_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE room_id = room_id`

	result, err := querier.ExecContext(ctx, query, id, roomID, userID, invitedBy, membership.JoinedAt)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to create membership")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// Exists reports whether the user is a member of the room.
func (m *MySQLMembershipRepository) Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	rid, err := roomID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal room id")
	}
	uid, err := userID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal user id")
	}

	var exists bool
	err = querier.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE room_id = ? AND user_id = ?)`,
		rid,
		uid,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check membership")
	}
	return exists, nil
}

// ListByRoom lists the room's members in join order.
func (m *MySQLMembershipRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]roomDomain.Member, error) {
	querier := database.GetTx(ctx, m.db)

	rid, err := roomID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal room id")
	}

	query := `SELECT u.id, u.username, u.email, inviter.username, m.joined_at
			  FROM memberships m
			  JOIN users u ON u.id = m.user_id
			  LEFT JOIN users inviter ON inviter.id = m.invited_by
			  WHERE m.room_id = ?
			  ORDER BY m.joined_at, u.username`

	rows, err := querier.QueryContext(ctx, query, rid)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list members")
	}
	defer func() {
		_ = rows.Close()
	}()

	members := make([]roomDomain.Member, 0)
	for rows.Next() {
		var member roomDomain.Member
		var uid []byte
		if err := rows.Scan(&uid, &member.Username, &member.Email, &member.InvitedByUsername, &member.JoinedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan member")
		}
		if err := member.UserID.UnmarshalBinary(uid); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate members")
	}
	return members, nil
}

// Count returns the number of members of the room.
func (m *MySQLMembershipRepository) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, m.db)

	rid, err := roomID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal room id")
	}

	var count int
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE room_id = ?`, rid).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count members")
	}
	return count, nil
}
