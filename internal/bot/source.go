package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// sourceIDs returns the chat a reply goes to and the user who sent the
// event. In a personal chat both are the user ID.
func sourceIDs(source webhook.SourceInterface) (chatID, userID string) {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId, s.UserId
	case webhook.GroupSource:
		return s.GroupId, s.UserId
	case webhook.RoomSource:
		return s.RoomId, s.UserId
	}
	return "", ""
}

// GetChatID returns the user, group or room ID the event came from.
func GetChatID(source webhook.SourceInterface) string {
	chatID, _ := sourceIDs(source)
	return chatID
}

// GetUserID returns the sending user, which may be empty in groups when
// the user has not consented to profile access.
func GetUserID(source webhook.SourceInterface) string {
	_, userID := sourceIDs(source)
	return userID
}

// IsPersonalChat reports whether the event came from a one-to-one chat.
func IsPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}
