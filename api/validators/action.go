package validators

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/menubot/internal/conversation"
)

// maxCallbackBytes is the Bot API limit on inline button data.
const maxCallbackBytes = 64

// actionRules holds HTTP actions to what a chat transport could deliver.
func actionRules(sl validator.StructLevel) {
	action, ok := sl.Current().Interface().(conversation.Action)
	if !ok {
		return
	}
	switch action.Kind {
	case conversation.ActionCallback:
		switch {
		case action.Payload == "":
			sl.ReportError(action.Payload, "payload", "Payload", "required", "")
		case len(action.Payload) > maxCallbackBytes:
			sl.ReportError(action.Payload, "payload", "Payload", "max", strconv.Itoa(maxCallbackBytes))
		}
	case conversation.ActionCommand:
		if !strings.HasPrefix(action.Payload, "/") {
			sl.ReportError(action.Payload, "payload", "Payload", "command", "")
		}
	}
}
