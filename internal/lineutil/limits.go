package lineutil

// LINE API character limits (rune count).
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000
	MaxQuickReplyItemCount = 13
	MaxQuickReplyLabel     = 20
	MaxMessagesPerReply    = 5
)

// TextListSafeBuffer is the chunk size used when splitting long replies,
// leaving room below MaxTextMessageLength.
const TextListSafeBuffer = 4900
