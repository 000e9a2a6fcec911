// Path: internal/domain/request.go
package domain

import "time"

// RequestStatus is the lifecycle state of a game request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
	StatusExpired  RequestStatus = "expired"
)

// ParseDecision validates a response to a pending request.
func ParseDecision(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case StatusAccepted, StatusRejected:
		return RequestStatus(s), nil
	default:
		return "", ErrInvalidDecision
	}
}

// GameRequest is an invitation from one player to another.
type GameRequest struct {
	ID         string        `json:"id" bson:"_id"`
	FromPlayer string        `json:"fromPlayer" bson:"fromPlayer"`
	ToPlayer   string        `json:"toPlayer" bson:"toPlayer"`
	Status     RequestStatus `json:"status" bson:"status"`
	GameID     string        `json:"gameId,omitempty" bson:"gameId,omitempty"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updatedAt"`
}
