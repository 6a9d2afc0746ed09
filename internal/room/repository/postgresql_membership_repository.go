package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// PostgreSQLMembershipRepository implements Membership persistence for PostgreSQL databases.
type PostgreSQLMembershipRepository struct {
	db *sql.DB
}

// NewPostgreSQLMembershipRepository creates a new PostgreSQL Membership repository instance.
func NewPostgreSQLMembershipRepository(db *sql.DB) *PostgreSQLMembershipRepository {
	return &PostgreSQLMembershipRepository{db: db}
}

// CreateIfNotExists inserts the membership unless the (room, user) pair already exists.
// It reports whether a row was inserted. Concurrent inserts of the same pair resolve on
// the unique constraint: exactly one caller gets true and the rest get false.
func (p *PostgreSQLMembershipRepository) CreateIfNotExists(
	ctx context.Context,
	membership *roomDomain.Membership,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO memberships (id, room_id, user_id, invited_by, joined_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (room_id, user_id) DO NOTHING`

	result, err := querier.ExecContext(
		ctx,
		query,
		membership.ID,
		membership.RoomID,
		membership.UserID,
		membership.InvitedBy,
		membership.JoinedAt,
	)
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
func (p *PostgreSQLMembershipRepository) Exists(
	ctx context.Context,
	roomID, userID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	var exists bool
	err := querier.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE room_id = $1 AND user_id = $2)`,
		roomID,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check membership")
	}
	return exists, nil
}

// ListByRoom lists the room's members in join order.
func (p *PostgreSQLMembershipRepository) ListByRoom(
	ctx context.Context,
	roomID uuid.UUID,
) ([]roomDomain.Member, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT u.id, u.username, u.email, inviter.username, m.joined_at
			  FROM memberships m
			  JOIN users u ON u.id = m.user_id
			  LEFT JOIN users inviter ON inviter.id = m.invited_by
			  WHERE m.room_id = $1
			  ORDER BY m.joined_at, u.username`

	rows, err := querier.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list members")
	}
	defer func() {
		_ = rows.Close()
	}()

	members := make([]roomDomain.Member, 0)
	for rows.Next() {
		var member roomDomain.Member
		if err := rows.Scan(
			&member.UserID,
			&member.Username,
			&member.Email,
			&member.InvitedByUsername,
			&member.JoinedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan member")
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate members")
	}
	return members, nil
}

// Count returns the number of members of the room.
func (p *PostgreSQLMembershipRepository) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, p.db)

	var count int
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships WHERE room_id = $1`, roomID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count members")
	}
	return count, nil
}
