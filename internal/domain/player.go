// Path: internal/domain/player.go
package domain

import (
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// NormalizeUsername trims surrounding whitespace and validates the result.
func NormalizeUsername(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if !usernamePattern.MatchString(u) {
		return "", ErrInvalidUsername
	}
	return u, nil
}

// Stats is the running game record of a player.
// TotalGames always equals Wins + Loses + Draws.
type Stats struct {
	Wins       int `json:"wins" bson:"wins"`
	Loses      int `json:"loses" bson:"loses"`
	Draws      int `json:"draws" bson:"draws"`
	TotalGames int `json:"totalGames" bson:"totalGames"`
}

// Outcome is the result of a finished game from one player's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Apply returns the stats after recording one more game with the given outcome.
func (s Stats) Apply(o Outcome) Stats {
	switch o {
	case OutcomeWin:
		s.Wins++
	case OutcomeLoss:
		s.Loses++
	case OutcomeDraw:
		s.Draws++
	default:
		return s
	}
	s.TotalGames++
	return s
}

// Player is a registered participant. The username is the identity and the
// document key.
type Player struct {
	Username   string    `json:"username" bson:"_id"`
	IsOnline   bool      `json:"isOnline" bson:"isOnline"`
	IsPlaying  bool      `json:"isPlaying" bson:"isPlaying"`
	Stats      Stats     `json:"stats" bson:"stats"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt" bson:"lastSeenAt"`
}
