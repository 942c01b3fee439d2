package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAWSRegion = "eu-central-1"

	ssmPrefix = "/vocabulary-trainer/prod/"
)

type (
	DB struct {
		Path string `envconfig:"FILE" default:"vocabulary.db"`
	}

	Learning struct {
		Location string `envconfig:"LOCATION" default:"Europe/Kyiv"`
	}
)

func (l Learning) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(l.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	return loc, nil
}

func (l Learning) MustTimeLocation() *time.Location {
	loc, err := l.TimeLocation()
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", l.Location, err))
	}
	return loc
}

// loadDotEnv loads variables from the given files into the environment.
// Missing files are skipped and variables already set are kept.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func parseChatIDs(chatIDsStr string) ([]int64, error) {
	if chatIDsStr == "" {
		return nil, nil
	}

	chatIDStrings := strings.Split(chatIDsStr, ",")
	chatIDs := make([]int64, 0, len(chatIDStrings))
	for _, chatIDString := range chatIDStrings {
		chatID, err := strconv.ParseInt(strings.TrimSpace(chatIDString), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chat IDs: invalid chat ID %s: %w", chatIDString, err)
		}
		chatIDs = append(chatIDs, chatID)
	}

	return chatIDs, nil
}
