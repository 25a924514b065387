// Copyright (c) 2025 BVK Chaitanya

package gobs

// TelegramState records chat ids learned from authorized users who messaged
// the bot.
type TelegramState struct {
	UserChatIDMap map[string]int64
}
