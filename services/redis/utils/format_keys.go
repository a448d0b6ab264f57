package utils

/**
 * This file contains utility functions to format the keys for Redis
 * (key, value) pairs. It avoids having to call "fmt.Sprintf(...)"
 * with the same format spec every time, potentially confusing the key format.
 */

import "fmt"

func FormatChatKey(roomID string, channel string) string {
	return fmt.Sprintf("room:%s:chat:%s", roomID, channel)
}

func FormatSnapshotKey(roomID string) string {
	return fmt.Sprintf("room:%s:snapshots", roomID)
}

func FormatPresenceKey(username string) string {
	return fmt.Sprintf("presence:%s", username)
}
