package types

// ClientMessage is a command sent over the websocket. The acting side is
// taken from the connection's view, never from the message.
type ClientMessage struct {
	Type      string `json:"type"` // ToggleReady | LockIn | Hover | RequestSwap | AcceptSwap | DeclineSwap
	ItemID    string `json:"item_id,omitempty"`
	TurnIndex int    `json:"turn_index,omitempty"`
}

type ServerMessage struct {
	Type    string          `json:"type"` // "StateSnapshot" | "Error"
	Version int             `json:"version,omitempty"`
	State   *SeriesSnapshot `json:"state,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateSeriesRequest is the body of POST /series. Zero values fall back to
// the server defaults.
type CreateSeriesRequest struct {
	BlueName      string `json:"blue_name,omitempty"`
	RedName       string `json:"red_name,omitempty"`
	NumberOfGames int    `json:"number_of_games,omitempty"`
	FearlessDraft *bool  `json:"fearless_draft,omitempty"`
	TurnTimerSec  int    `json:"turn_timer_sec,omitempty"`
}

type CreateSeriesResponse struct {
	Code string          `json:"code"`
	URLs map[string]string `json:"urls"`
	State *SeriesSnapshot `json:"state"`
}
