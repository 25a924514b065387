// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"slices"
)

type Secrets struct {
	BotToken string `json:"token"`

	// OwnerID is the telegram user name allowed to run bot commands. Owner's
	// chat id is learned when the owner first messages the bot.
	OwnerID string `json:"owner"`

	OtherIDs []string `json:"others"`

	// ChatIDs are fixed receivers of all notifications.
	ChatIDs []int64 `json:"chat_ids"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("bot token cannot be empty")
	}
	if len(v.OwnerID) == 0 && len(v.ChatIDs) == 0 {
		return fmt.Errorf("one of owner id or chat ids is required")
	}
	if slices.Contains(v.OtherIDs, "") {
		return fmt.Errorf("empty string in other ids is not a valid id")
	}
	if len(v.OwnerID) != 0 && slices.Contains(v.OtherIDs, v.OwnerID) {
		return fmt.Errorf("owner id should not be repeated in other ids")
	}
	if slices.Contains(v.ChatIDs, 0) {
		return fmt.Errorf("zero is not a valid chat id")
	}
	return nil
}

func (v *Secrets) Clone() *Secrets {
	return &Secrets{
		BotToken: v.BotToken,
		OwnerID:  v.OwnerID,
		OtherIDs: slices.Clone(v.OtherIDs),
		ChatIDs:  slices.Clone(v.ChatIDs),
	}
}
