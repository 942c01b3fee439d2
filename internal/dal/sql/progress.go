package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

func (r *Repository) FindWordProgress(ctx context.Context, chatID, wordID int64) (*dal.WordProgress, error) {
	row, err := r.queryRow(ctx, dal.FindWordProgressQuery(chatID, wordID))
	if err != nil {
		return nil, err
	}

	p, err := hydrateWordProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dal.ErrNotFound
		}
		return nil, fmt.Errorf("find word progress: %w", err)
	}
	return p, nil
}

// InsertWordProgress creates progress of a word and reports false when the word is already being learned.
func (r *Repository) InsertWordProgress(ctx context.Context, progress dal.WordProgress) (bool, error) {
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = r.now()
	}
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = progress.CreatedAt
	}

	res, err := r.exec(ctx, dal.InsertWordProgressQuery(progress))
	if err != nil {
		return false, fmt.Errorf("insert word progress: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) UpdateWordProgress(ctx context.Context, progress dal.WordProgress) error {
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = r.now()
	}

	res, err := r.exec(ctx, dal.UpdateWordProgressQuery(progress))
	if err != nil {
		return fmt.Errorf("update word progress: %w", err)
	}
	return mustAffect(res)
}

func (r *Repository) DeleteWordProgress(ctx context.Context, chatID, wordID int64) error {
	res, err := r.exec(ctx, dal.DeleteWordProgressQuery(chatID, wordID))
	if err != nil {
		return fmt.Errorf("delete word progress: %w", err)
	}
	return mustAffect(res)
}

func (r *Repository) FindDueWords(ctx context.Context, chatID int64, now time.Time, limit uint64) ([]dal.WordWithProgress, error) {
	rows, err := r.query(ctx, dal.FindDueWordsQuery(chatID, now, limit))
	if err != nil {
		return nil, fmt.Errorf("find due words: %w", err)
	}
	defer rows.Close()

	res := make([]dal.WordWithProgress, 0, limit)
	for rows.Next() {
		w, err := hydrateWordWithProgress(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due words: %w", err)
	}

	return res, nil
}

func (r *Repository) CountProgress(ctx context.Context, chatID int64) (*dal.ProgressCounts, error) {
	row, err := r.queryRow(ctx, dal.CountProgressQuery(chatID))
	if err != nil {
		return nil, err
	}

	var res dal.ProgressCounts
	if err = row.Scan(&res.New, &res.Learning, &res.Reviewing, &res.Mastered); err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}
	return &res, nil
}

func (r *Repository) FindDueSummaries(ctx context.Context, chatIDs []int64, now time.Time) ([]dal.DueSummary, error) {
	rows, err := r.query(ctx, dal.DueSummariesQuery(chatIDs, now))
	if err != nil {
		return nil, fmt.Errorf("find due summaries: %w", err)
	}
	defer rows.Close()

	var res []dal.DueSummary
	for rows.Next() {
		var s dal.DueSummary
		if err := rows.Scan(&s.ChatID, &s.DueWords); err != nil {
			return nil, fmt.Errorf("scan due summary: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due summaries: %w", err)
	}

	return res, nil
}

func hydrateWordProgress(row scanner) (*dal.WordProgress, error) {
	var (
		p            dal.WordProgress
		lastReviewAt sql.NullTime
	)
	err := row.Scan(
		&p.ChatID,
		&p.WordID,
		&p.EaseFactor,
		&p.Interval,
		&p.Repetitions,
		&p.Status,
		&p.NextReviewAt,
		&lastReviewAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan word progress: %w", err)
	}

	p.NextReviewAt = p.NextReviewAt.UTC()
	p.LastReviewAt = nullTime(lastReviewAt)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}
