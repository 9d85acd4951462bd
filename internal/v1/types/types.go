package types

import "fmt"

// --- Core Domain Types ---

// RoomCode is the 4-character uppercase alphanumeric identifier for a live game.
type RoomCode string

// ParticipantID uniquely identifies a participant across reconnects.
type ParticipantID string

// Role defines what a participant may do in a room.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the three recognised roles.
func (r Role) Valid() bool {
	return r == RoleHost || r == RolePlayer || r == RoleViewer
}

// Status is the room state machine's current phase.
type Status string

const (
	StatusWaiting          Status = "waiting"
	StatusReady            Status = "ready"
	StatusSelecting        Status = "selecting"
	StatusClueRevealed     Status = "clue_revealed"
	StatusBuzzing          Status = "buzzing"
	StatusAnswering        Status = "answering"
	StatusJudging          Status = "judging"
	StatusFinalWagering    Status = "final_wagering"
	StatusFinalClueReading Status = "final_clue_reading"
	StatusFinalAnswering   Status = "final_answering"
	StatusFinalJudging     Status = "final_judging"
	StatusFinished         Status = "finished"
)

// RoundKind identifies which board (or the final clue) is in play.
type RoundKind string

const (
	RoundFirst  RoundKind = "first"
	RoundDouble RoundKind = "double"
	RoundFinal  RoundKind = "final"
)

// --- Game Content ---

const (
	CategoriesPerRound = 6
	CluesPerCategory   = 5
)

// Clue is a single cell on the board. Revealed and Answered are the only
// fields mutated after a config is loaded into a room.
type Clue struct {
	ID       string `json:"id"`
	Value    int    `json:"value"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Revealed bool   `json:"revealed"`
	Answered bool   `json:"answered"`
}

// Category holds five clues ordered by value ascending.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Clues []Clue `json:"clues"`
}

// Board is one regular round's grid of six categories.
type Board struct {
	Categories []Category `json:"categories"`
}

// FinalRound is the degenerate single-clue final.
type FinalRound struct {
	CategoryName string `json:"categoryName"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
}

// GameMetadata describes how a config was produced.
type GameMetadata struct {
	Topics     []string `json:"topics,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// GameConfig is the sole persisted artefact: a full game's content.
// Immutable after loading into a room except clue Revealed/Answered flags.
type GameConfig struct {
	ID          string       `json:"id"`
	FirstRound  Board        `json:"firstRound"`
	DoubleRound Board        `json:"doubleRound"`
	FinalRound  FinalRound   `json:"finalRound"`
	CreatedAt   int64        `json:"createdAt"`
	Metadata    GameMetadata `json:"metadata"`
	SavedAt     int64        `json:"savedAt,omitempty"`
	SavedBy     string       `json:"savedBy,omitempty"`
}

// Clone returns a deep copy. Snapshots and saved copies are marshalled on
// other goroutines after the room lock is released, so they must not alias
// the live board slices.
func (g *GameConfig) Clone() *GameConfig {
	if g == nil {
		return nil
	}
	cp := *g
	cp.FirstRound = g.FirstRound.clone()
	cp.DoubleRound = g.DoubleRound.clone()
	if g.Metadata.Topics != nil {
		cp.Metadata.Topics = append([]string(nil), g.Metadata.Topics...)
	}
	return &cp
}

func (b Board) clone() Board {
	out := Board{Categories: make([]Category, len(b.Categories))}
	for i, cat := range b.Categories {
		cat.Clues = append([]Clue(nil), cat.Clues...)
		out.Categories[i] = cat
	}
	return out
}

// GameSummary is the list-view projection of a stored GameConfig.
type GameSummary struct {
	ID        string       `json:"id"`
	CreatedAt int64        `json:"createdAt"`
	Metadata  GameMetadata `json:"metadata"`
	Filename  string       `json:"filename,omitempty"`
}

// Validate checks board shape: two rounds of six categories with five clues
// each, positive values ascending within a category, and a non-empty final.
func (g *GameConfig) Validate() error {
	if err := validateBoard("firstRound", g.FirstRound); err != nil {
		return err
	}
	if err := validateBoard("doubleRound", g.DoubleRound); err != nil {
		return err
	}
	if g.FinalRound.Prompt == "" || g.FinalRound.Response == "" {
		return fmt.Errorf("finalRound must have a prompt and a response")
	}
	return nil
}

func validateBoard(name string, b Board) error {
	if len(b.Categories) != CategoriesPerRound {
		return fmt.Errorf("%s must have %d categories (got %d)", name, CategoriesPerRound, len(b.Categories))
	}
	for ci, cat := range b.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%s category %d has no name", name, ci)
		}
		if len(cat.Clues) != CluesPerCategory {
			return fmt.Errorf("%s category %q must have %d clues (got %d)", name, cat.Name, CluesPerCategory, len(cat.Clues))
		}
		prev := 0
		for qi, clue := range cat.Clues {
			if clue.Value <= 0 {
				return fmt.Errorf("%s category %q clue %d has non-positive value %d", name, cat.Name, qi, clue.Value)
			}
			if clue.Value < prev {
				return fmt.Errorf("%s category %q clues must be ordered by value ascending", name, cat.Name)
			}
			if clue.Prompt == "" {
				return fmt.Errorf("%s category %q clue %d has no prompt", name, cat.Name, qi)
			}
			prev = clue.Value
		}
	}
	return nil
}

// --- Snapshot Schema ---

// PlayerView is one participant's entry in a snapshot, in join order.
type PlayerView struct {
	ID          ParticipantID `json:"id"`
	Name        string        `json:"name"`
	Role        Role          `json:"role"`
	Score       int           `json:"score"`
	BuzzedAt    *int64        `json:"buzzedAt,omitempty"`
	FinalWager  *int          `json:"finalWager,omitempty"`
	FinalAnswer *string       `json:"finalAnswer,omitempty"`
}

// SelectedClueView identifies the clue in play within the current round.
type SelectedClueView struct {
	CategoryID string `json:"categoryId"`
	ClueID     string `json:"clueId"`
	Value      int    `json:"value"`
	Prompt     string `json:"prompt"`
}

// GameState is a total snapshot of a room, sufficient to render any
// participant's UI. All timestamps are absolute ms since epoch.
type GameState struct {
	RoomID                  RoomCode          `json:"roomId"`
	Status                  Status            `json:"status"`
	CurrentRound            RoundKind         `json:"currentRound"`
	Config                  *GameConfig       `json:"config,omitempty"`
	SelectedClue            *SelectedClueView `json:"selectedClue,omitempty"`
	Players                 []PlayerView      `json:"players"`
	BuzzerLocked            bool              `json:"buzzerLocked"`
	BuzzerOrder             []ParticipantID   `json:"buzzerOrder"`
	DisplayBuzzerOrder      []ParticipantID   `json:"displayBuzzerOrder"`
	CurrentPlayer           *ParticipantID    `json:"currentPlayer,omitempty"`
	JudgedPlayers           []ParticipantID   `json:"judgedPlayers"`
	NotPickedInTies         []ParticipantID   `json:"notPickedInTies"`
	LastCorrectPlayer       *ParticipantID    `json:"lastCorrectPlayer,omitempty"`
	HostID                  ParticipantID     `json:"hostId"`
	FinalCountdownEnd       *int64            `json:"finalCountdownEnd,omitempty"`
	FinalJudgingPlayerIndex *int              `json:"finalJudgingPlayerIndex,omitempty"`
	FinalRevealedWager      bool              `json:"finalRevealedWager"`
	FinalRevealedAnswer     bool              `json:"finalRevealedAnswer"`
}
