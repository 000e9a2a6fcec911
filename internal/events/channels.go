// Path: internal/events/channels.go
package events

// Fan-out channel names.
const (
	PlayersChanged = "PLAYERS_CHANGED"
)

func MoveMadeChannel(gameID string) string     { return "MOVE_MADE_" + gameID }
func GameFinishedChannel(gameID string) string { return "GAME_FINISHED_" + gameID }

func RequestReceivedChannel(username string) string  { return "GAME_REQUEST_RECEIVED_" + username }
func RequestRespondedChannel(username string) string { return "GAME_REQUEST_RESPONDED_" + username }
func RequestAcceptedChannel(username string) string  { return "GAME_REQUEST_ACCEPTED_" + username }
