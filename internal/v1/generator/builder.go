package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buzzboard/backend/internal/v1/types"
	"github.com/google/uuid"
)

// ErrInvalidOutput marks responses the generator produced but that do not
// form a playable board. Callers can retry without treating the generator
// as down.
var ErrInvalidOutput = errors.New("generator output is not a valid game")

// completer is the slice of Client the builder needs; tests substitute it.
type completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Builder turns topic requests into validated game configs.
type Builder struct {
	client completer
}

// NewBuilder wraps a generator client.
func NewBuilder(client completer) *Builder {
	return &Builder{client: client}
}

const systemInstructions = `You write trivia game boards in the style of Jeopardy.
Respond with a single JSON object and nothing else. The object has three keys:
"firstRound", "doubleRound", and "finalRound". Each round is an object with a
"categories" array of exactly 6 categories. Each category has a "name" and a
"clues" array of exactly 5 clues ordered by ascending difficulty. Each clue has
"value" (200/400/600/800/1000 in the first round, doubled in the double round),
"prompt" (the statement read to players), and "response" (the expected answer).
"finalRound" is an object with "categoryName", "prompt", and "response".`

// BuildGame asks the generator for a full board on the given topics and
// returns a validated config. Malformed generator output comes back as an
// error without consuming the conversation, so the caller may simply retry.
func (b *Builder) BuildGame(ctx context.Context, topics []string, difficulty string) (*types.GameConfig, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	prompt := fmt.Sprintf("Create a %s-difficulty game covering these topics: %s.",
		difficulty, strings.Join(topics, ", "))

	resp, err := b.client.Complete(ctx, Request{
		SystemInstructions: systemInstructions,
		UserPrompt:         prompt,
		OutputFormat:       FormatJSON,
	})
	if err != nil {
		return nil, err
	}

	cfg, err := parseGeneratedConfig(resp.OutputText)
	if err != nil {
		return nil, err
	}

	cfg.ID = uuid.NewString()
	cfg.CreatedAt = time.Now().UnixMilli()
	cfg.Metadata = types.GameMetadata{Topics: topics, Difficulty: difficulty}
	return cfg, nil
}

// parseGeneratedConfig decodes the model's JSON, tolerating a markdown code
// fence around it, and normalises ids before validating the board shape.
func parseGeneratedConfig(text string) (*types.GameConfig, error) {
	text = stripCodeFence(text)

	var cfg types.GameConfig
	if err := json.Unmarshal([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidOutput, err)
	}

	assignBoardIDs(&cfg.FirstRound)
	assignBoardIDs(&cfg.DoubleRound)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &cfg, nil
}

func assignBoardIDs(b *types.Board) {
	for ci := range b.Categories {
		cat := &b.Categories[ci]
		if cat.ID == "" {
			cat.ID = uuid.NewString()
		}
		for qi := range cat.Clues {
			if cat.Clues[qi].ID == "" {
				cat.Clues[qi].ID = uuid.NewString()
			}
			cat.Clues[qi].Revealed = false
			cat.Clues[qi].Answered = false
		}
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
