package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

// maxMessageLength is Telegram's limit for a single text message.
const maxMessageLength = 4096

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Split(s, " ")
	// Commands in groups may carry the bot name: /start@recycling_bot
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// splitMessage splits text into parts of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
