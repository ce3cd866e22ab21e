package party

import "strings"

// The chat stream doubles as a command bus: a system message whose text
// carries the kick sentinel is an eviction instruction, not display text.
// The sentinel is a wire contract, so encoding and decoding live here and
// nowhere else. Call sites never touch the prefix.
const kickCommandPrefix = "CMD:KICK:"

func EncodeKickCommand(username string) string {
	return kickCommandPrefix + username
}

// DecodeKickCommand reports the kick target if the message is an eviction
// instruction. Only system messages qualify.
func DecodeKickCommand(msg Message) (string, bool) {
	if !msg.IsSystem || !strings.HasPrefix(msg.Text, kickCommandPrefix) {
		return "", false
	}

	target := strings.TrimPrefix(msg.Text, kickCommandPrefix)
	if target == "" {
		return "", false
	}

	return target, true
}
