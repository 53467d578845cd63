package entity

import "time"

const (
	StatusWaitsForUser = "WAITS_FOR_USER"
	StatusInProgress   = "IN_PROGRESS"
	StatusUserOneWins  = "USER_ONE_WINS"
	StatusUserTwoWins  = "USER_TWO_WINS"
	StatusDraw         = "DRAW"
	StatusAborted      = "ABORTED"
)

const (
	CompetitionType = "COMPETITION"
	// ComputerType is declared for single-player games; no engine opponent
	// is implemented, such games still wait for a second user.
	ComputerType = "COMPUTER"
)

const (
	PieceX = "X"
	PieceO = "O"
)

type Game struct {
	ID               int64      `json:"id"`
	UserOne          *User      `json:"user_one,omitempty"`
	UserTwo          *User      `json:"user_two,omitempty"`
	Status           string     `json:"status"`
	Type             string     `json:"type"`
	UserOnePieceCode string     `json:"user_one_piece_code"`
	CreatedAt        time.Time  `json:"created_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`

	// Version guards concurrent status updates; bumped on every save.
	Version int64 `json:"-"`
}

func NewGame(userOne *User, gameType, pieceCode string) *Game {
	return &Game{
		UserOne:          userOne,
		Status:           StatusWaitsForUser,
		Type:             gameType,
		UserOnePieceCode: pieceCode,
	}
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaitsForUser
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsTerminal() bool {
	switch that.Status {
	case StatusUserOneWins, StatusUserTwoWins, StatusDraw, StatusAborted:
		return true
	default:
		return false
	}
}

func (that *Game) HasBothUsers() bool {
	return that.UserOne != nil && that.UserTwo != nil
}

// IsParticipant reports whether the given user plays in this game.
func (that *Game) IsParticipant(userID int64) bool {
	if that.UserOne != nil && that.UserOne.ID == userID {
		return true
	}
	if that.UserTwo != nil && that.UserTwo.ID == userID {
		return true
	}
	return false
}

// PieceOf returns the piece code the given participant plays.
// userTwo implicitly plays the opposite of userOnePieceCode.
func (that *Game) PieceOf(userID int64) string {
	if that.UserOne != nil && that.UserOne.ID == userID {
		return that.UserOnePieceCode
	}
	return OppositePiece(that.UserOnePieceCode)
}

func OppositePiece(pieceCode string) string {
	if pieceCode == PieceX {
		return PieceO
	}
	return PieceX
}
