package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

// SyncBadges upserts the badge catalog, the order of badges is kept for listing.
func (r *Repository) SyncBadges(ctx context.Context, badges []dal.Badge) error {
	return r.transact(ctx, func(tx *Repository) error {
		for i, b := range badges {
			if _, err := tx.exec(ctx, dal.SyncBadgeQuery(b, i)); err != nil {
				return fmt.Errorf("sync badge %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

func (r *Repository) FindBadges(ctx context.Context, chatID int64) ([]dal.UserBadge, error) {
	rows, err := r.query(ctx, dal.FindBadgesQuery(chatID))
	if err != nil {
		return nil, fmt.Errorf("find badges: %w", err)
	}
	defer rows.Close()

	var res []dal.UserBadge
	for rows.Next() {
		var (
			b        dal.UserBadge
			earnedAt sql.NullTime
		)
		err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.Description,
			&b.Icon,
			&b.Requirement,
			&b.XPBonus,
			&earnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		b.EarnedAt = nullTime(earnedAt)
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}

	return res, nil
}

func (r *Repository) HasEarned(ctx context.Context, chatID int64, badgeID string) (bool, error) {
	row, err := r.queryRow(ctx, dal.HasEarnedQuery(chatID, badgeID))
	if err != nil {
		return false, err
	}

	var count int
	if err = row.Scan(&count); err != nil {
		return false, fmt.Errorf("check earned badge: %w", err)
	}
	return count > 0, nil
}

// RecordEarned awards a badge and reports false when it was already awarded.
func (r *Repository) RecordEarned(ctx context.Context, chatID int64, badgeID string, earnedAt time.Time) (bool, error) {
	res, err := r.exec(ctx, dal.RecordEarnedQuery(chatID, badgeID, earnedAt))
	if err != nil {
		return false, fmt.Errorf("record earned badge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return affected > 0, nil
}
