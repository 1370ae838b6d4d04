package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"civicwatch/internal/voting"
)

// ApplyVote moves a user's vote on a report to dir and returns the updated
// tally. The report row is locked for the duration of the transaction so the
// ledger row and the aggregate counters always change together.
func (d *DB) ApplyVote(ctx context.Context, userID uuid.UUID, reportID int64, dir voting.Direction) (*voting.Tally, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var upvotes, downvotes int
	err = tx.QueryRow(ctx, `
		SELECT upvotes, downvotes FROM reports WHERE id = $1 FOR UPDATE
	`, reportID).Scan(&upvotes, &downvotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock report: %w", err)
	}

	current, err := currentVote(ctx, tx, userID, reportID)
	if err != nil {
		return nil, err
	}

	next, deltaUp, deltaDown := voting.Transition(current, dir)
	if next == current {
		return &voting.Tally{
			Upvotes:   upvotes,
			Downvotes: downvotes,
			UserVote:  voting.UserVoteToken(current),
		}, nil
	}

	if next == voting.Absent {
		_, err = tx.Exec(ctx, `DELETE FROM votes WHERE user_id = $1 AND report_id = $2`, userID, reportID)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO votes (user_id, report_id, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, report_id) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, userID, reportID, int(next))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write vote: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE reports
		SET upvotes = upvotes + $2, downvotes = downvotes + $3
		WHERE id = $1
		RETURNING upvotes, downvotes
	`, reportID, deltaUp, deltaDown).Scan(&upvotes, &downvotes)
	if err != nil {
		return nil, fmt.Errorf("failed to update vote counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	return &voting.Tally{
		Upvotes:   upvotes,
		Downvotes: downvotes,
		UserVote:  voting.UserVoteToken(next),
	}, nil
}

func currentVote(ctx context.Context, tx pgx.Tx, userID uuid.UUID, reportID int64) (voting.Value, error) {
	var value int
	err := tx.QueryRow(ctx, `
		SELECT value FROM votes WHERE user_id = $1 AND report_id = $2
	`, userID, reportID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return voting.Absent, nil
	}
	if err != nil {
		return voting.Absent, fmt.Errorf("failed to read vote: %w", err)
	}
	return voting.Value(value), nil
}

// GetUserVote returns a user's current vote on a report.
func (d *DB) GetUserVote(ctx context.Context, userID uuid.UUID, reportID int64) (voting.Value, error) {
	var value int
	err := d.Pool.QueryRow(ctx, `
		SELECT value FROM votes WHERE user_id = $1 AND report_id = $2
	`, userID, reportID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return voting.Absent, nil
	}
	if err != nil {
		return voting.Absent, err
	}
	return voting.Value(value), nil
}
