package conversation

// ActionKind says how the user produced an Action.
type ActionKind string

const (
	ActionCommand  ActionKind = "command"
	ActionText     ActionKind = "text"
	ActionContact  ActionKind = "contact"
	ActionCallback ActionKind = "callback"
)

func (k ActionKind) IsValid() bool {
	switch k {
	case ActionCommand, ActionText, ActionContact, ActionCallback:
		return true
	default:
		return false
	}
}

// Action is one transport-neutral user input.
type Action struct {
	Kind      ActionKind `json:"kind" validate:"required,oneof=command text contact callback"`
	UserID    int64      `json:"user_id" validate:"required"`
	ChatID    int64      `json:"chat_id"`
	Username  string     `json:"username,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	Payload   string     `json:"payload,omitempty" validate:"max=4096"`
	Phone     string     `json:"phone,omitempty" validate:"max=32"`
}

// Button is an inline keyboard button carrying a callback token.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Message is one outgoing chat message.
type Message struct {
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard,omitempty"`
	// RequestContact asks the transport for a one-shot share-contact keyboard.
	RequestContact bool `json:"request_contact,omitempty"`
	RemoveKeyboard bool `json:"remove_keyboard,omitempty"`
}

// Reply is everything the transport should show in response to an Action.
// Notice is a short toast for callbacks; Alert marks it as a rejection.
type Reply struct {
	Messages []Message `json:"messages,omitempty"`
	Notice   string    `json:"notice,omitempty"`
	Alert    bool      `json:"alert,omitempty"`
	State    State     `json:"state"`
}
