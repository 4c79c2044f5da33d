package workflow

import "github.com/google/uuid"

const (
	ActionConfirm = "confirm_transaction"
	ActionCancel  = "cancel_transaction"
)

type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Response is everything a chat surface needs to answer one message.
type Response struct {
	Reply       string     `json:"reply"`
	ShowButtons bool       `json:"show_buttons"`
	Buttons     []Button   `json:"buttons,omitempty"`
	ActionID    *uuid.UUID `json:"action_id,omitempty"`
}

func confirmButtons() []Button {
	return []Button{
		{Label: "✅ Confirm", Action: ActionConfirm},
		{Label: "❌ Cancel", Action: ActionCancel},
	}
}
