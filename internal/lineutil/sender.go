package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// BotName is the display name shown on every reply.
const BotName = "MetroMate"

// GetSender creates the sender used for one reply session so that all
// messages in a reply share the same name and icon.
func GetSender(name, iconURL string) *messaging_api.Sender {
	if name == "" {
		name = BotName
	}
	return &messaging_api.Sender{
		Name:    name,
		IconUrl: iconURL,
	}
}
