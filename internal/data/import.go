package data

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
)

const (
	minParts = 2
	maxParts = 4
)

var ErrInvalidLine = errors.New("line must look like word:translation[:description[:morphemes]]")

type ParsingError struct {
	InvalidLines []int
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing error: invalidLines=%v", e.InvalidLines)
}

// ParseWord parses a single "word:translation[:description[:morphemes]]" line.
// The word is lower cased, ChatID is left for the caller to set.
func ParseWord(line string) (dal.Word, error) {
	parts := strings.Split(line, ":")
	if len(parts) < minParts || len(parts) > maxParts {
		return dal.Word{}, ErrInvalidLine
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	res := dal.Word{
		Word:        strings.ToLower(parts[0]),
		Translation: parts[1],
	}
	if res.Word == "" || res.Translation == "" {
		return dal.Word{}, ErrInvalidLine
	}
	if len(parts) > 2 { //nolint:mnd // description position
		res.Description = parts[2]
	}
	if len(parts) > 3 { //nolint:mnd // morphemes position
		res.Morphemes = parts[3]
	}
	return res, nil
}

// Parse streams words from in to out and closes both when done.
// Blank lines are skipped, invalid lines are reported in a ParsingError after all valid lines are sent.
func Parse(ctx context.Context, in io.ReadCloser, out chan<- dal.Word) error {
	defer close(out)
	defer in.Close()

	scanner := bufio.NewScanner(in)
	invalidLines := make([]int, 0, 10) //nolint:mnd // 10 is the expected capacity
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		word, err := ParseWord(line)
		if err != nil {
			invalidLines = append(invalidLines, lineNum)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- word: // continue
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	if len(invalidLines) > 0 {
		return &ParsingError{InvalidLines: invalidLines}
	}

	return nil
}
