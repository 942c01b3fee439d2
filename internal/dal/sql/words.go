package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

func (r *Repository) AddWord(ctx context.Context, word dal.Word) (int64, error) {
	if word.ChatID == 0 {
		return 0, errors.New("chat id is required")
	}
	if word.CreatedAt.IsZero() {
		word.CreatedAt = r.now()
	}
	if word.UpdatedAt.IsZero() {
		word.UpdatedAt = word.CreatedAt
	}

	res, err := r.exec(ctx, dal.AddWordQuery(word))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, dal.ErrAlreadyExists
		}
		return 0, fmt.Errorf("add word: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// UpsertWord adds a word or overwrites translation, description and morphemes of the existing one with the same spelling.
func (r *Repository) UpsertWord(ctx context.Context, word dal.Word) error {
	if word.ChatID == 0 {
		return errors.New("chat id is required")
	}
	now := r.now()
	word.CreatedAt, word.UpdatedAt = now, now

	if _, err := r.exec(ctx, dal.UpsertWordQuery(word)); err != nil {
		return fmt.Errorf("upsert word: %w", err)
	}
	return nil
}

func (r *Repository) UpdateWord(ctx context.Context, word dal.Word) error {
	if word.UpdatedAt.IsZero() {
		word.UpdatedAt = r.now()
	}

	res, err := r.exec(ctx, dal.UpdateWordQuery(word))
	if err != nil {
		if isUniqueViolation(err) {
			return dal.ErrAlreadyExists
		}
		return fmt.Errorf("update word: %w", err)
	}
	return mustAffect(res)
}

func (r *Repository) DeleteWord(ctx context.Context, chatID, wordID int64) error {
	res, err := r.exec(ctx, dal.DeleteWordQuery(chatID, wordID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return dal.ErrInUse
		}
		return fmt.Errorf("delete word: %w", err)
	}
	return mustAffect(res)
}

func (r *Repository) FindWord(ctx context.Context, chatID, wordID int64) (*dal.Word, error) {
	row, err := r.queryRow(ctx, dal.FindWordQuery(chatID, wordID))
	if err != nil {
		return nil, err
	}

	w, err := hydrateWord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dal.ErrNotFound
		}
		return nil, fmt.Errorf("find word: %w", err)
	}
	return w, nil
}

func (r *Repository) FindWords(ctx context.Context, chatID int64, filter dal.WordsFilter) ([]dal.WordWithProgress, int, error) {
	selectQuery, countQuery := dal.FindWordsQuery(chatID, filter)

	eg, ctx := errgroup.WithContext(ctx)
	res := make([]dal.WordWithProgress, 0, filter.Limit)
	total := 0

	eg.Go(func() error {
		rows, err := r.query(ctx, selectQuery)
		if err != nil {
			return fmt.Errorf("find words: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			w, err := hydrateWordWithProgress(rows)
			if err != nil {
				return err
			}
			res = append(res, *w)
		}

		if rows.Err() != nil {
			return fmt.Errorf("iterate words: %w", rows.Err())
		}

		return nil
	})

	eg.Go(func() error {
		row, err := r.queryRow(ctx, countQuery)
		if err != nil {
			return err
		}

		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("get total: %w", err)
		}

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	return res, total, nil
}

func mustAffect(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return dal.ErrNotFound
	}
	return nil
}

func hydrateWord(row scanner) (*dal.Word, error) {
	var w dal.Word
	err := row.Scan(
		&w.ID,
		&w.ChatID,
		&w.Word,
		&w.Translation,
		&w.Description,
		&w.Morphemes,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan word: %w", err)
	}
	w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()
	return &w, nil
}

func hydrateWordWithProgress(row scanner) (*dal.WordWithProgress, error) {
	var (
		w dal.WordWithProgress

		chatID       sql.NullInt64
		wordID       sql.NullInt64
		easeFactor   sql.NullFloat64
		interval     sql.NullInt64
		repetitions  sql.NullInt64
		status       sql.NullString
		nextReviewAt sql.NullTime
		lastReviewAt sql.NullTime
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
	)
	err := row.Scan(
		&w.ID,
		&w.ChatID,
		&w.Word.Word,
		&w.Translation,
		&w.Description,
		&w.Morphemes,
		&w.CreatedAt,
		&w.UpdatedAt,
		&chatID,
		&wordID,
		&easeFactor,
		&interval,
		&repetitions,
		&status,
		&nextReviewAt,
		&lastReviewAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan word with progress: %w", err)
	}
	w.CreatedAt, w.UpdatedAt = w.CreatedAt.UTC(), w.UpdatedAt.UTC()

	if wordID.Valid {
		w.Progress = &dal.WordProgress{
			ChatID:       chatID.Int64,
			WordID:       wordID.Int64,
			EaseFactor:   easeFactor.Float64,
			Interval:     int(interval.Int64),
			Repetitions:  int(repetitions.Int64),
			Status:       status.String,
			NextReviewAt: nextReviewAt.Time.UTC(),
			LastReviewAt: nullTime(lastReviewAt),
			CreatedAt:    createdAt.Time.UTC(),
			UpdatedAt:    updatedAt.Time.UTC(),
		}
	}

	return &w, nil
}
