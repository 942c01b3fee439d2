package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/dal"
	sqlrepo "github.com/Roma7-7-7/vocabulary-trainer/internal/dal/sql"
	"github.com/Roma7-7-7/vocabulary-trainer/internal/data"
)

const importTimeout = 5 * time.Minute

const (
	exitCodeOK int = iota
	exitCodeInvalidArgs
	exitCodeDBConnect
	exitCodeOpenSource
	exitCodeImport
	exitCodeInvalidLines
)

type args struct {
	source string
	dbPath string
	chatID int64
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, cmdArgs []string) int {
	ctx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	a, err := parseArgs(cmdArgs)
	if err != nil {
		log.ErrorContext(ctx, "invalid arguments", "error", err)
		return exitCodeInvalidArgs
	}

	db, err := sqlrepo.Open(ctx, a.dbPath)
	if err != nil {
		log.ErrorContext(ctx, "failed to open database", "error", err, "path", a.dbPath)
		return exitCodeDBConnect
	}
	defer db.Close()
	repo := sqlrepo.NewRepository(ctx, db, log)

	in, err := os.Open(a.source)
	if err != nil {
		log.ErrorContext(ctx, "failed to open source file", "error", err, "source", a.source)
		return exitCodeOpenSource
	}

	imported, err := importWords(ctx, repo, a.chatID, in)
	var parsingErr *data.ParsingError
	switch {
	case errors.As(err, &parsingErr):
		log.WarnContext(ctx, "some lines were skipped", "imported", imported, "invalid_lines", parsingErr.InvalidLines)
		return exitCodeInvalidLines
	case err != nil:
		log.ErrorContext(ctx, "failed to import words", "error", err)
		return exitCodeImport
	}

	log.InfoContext(ctx, "done", "imported", imported)
	return exitCodeOK
}

// importWords upserts every parsed word in a single transaction.
// A ParsingError is returned after the valid words are committed.
// The parser is unblocked through the group context when the transaction fails.
func importWords(ctx context.Context, repo dal.Repository, chatID int64, in io.ReadCloser) (int, error) {
	words := make(chan dal.Word)
	imported := 0

	var parseErr error
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		parseErr = data.Parse(egCtx, in, words)
		if errors.As(parseErr, new(*data.ParsingError)) {
			return nil
		}
		return parseErr
	})
	eg.Go(func() error {
		return repo.Transact(egCtx, func(tx dal.Repository) error {
			for w := range words {
				w.ChatID = chatID
				if err := tx.UpsertWord(egCtx, w); err != nil {
					return fmt.Errorf("upsert word %q: %w", w.Word, err)
				}
				imported++
			}
			return nil
		})
	})

	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return imported, parseErr
}

func parseArgs(cmdArgs []string) (args, error) {
	var a args
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.StringVar(&a.source, "source", "", "source file with word:translation[:description[:morphemes]] lines")
	fs.StringVar(&a.dbPath, "db", "vocabulary.db", "sqlite database file")
	fs.Int64Var(&a.chatID, "chat-id", 0, "chat ID")
	if err := fs.Parse(cmdArgs); err != nil {
		return a, fmt.Errorf("parse flags: %w", err)
	}

	if a.source == "" {
		return a, errors.New("source file is required")
	}
	if a.dbPath == "" {
		return a, errors.New("database file is required")
	}
	if a.chatID == 0 {
		return a, errors.New("chat ID is required")
	}
	return a, nil
}
