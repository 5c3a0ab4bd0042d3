package models

import "strings"

const (
	// DefaultMaxMessages is how many trailing thread messages make it into a prompt
	DefaultMaxMessages = 20

	// BotPlaceholder replaces the bot's own user ID inside message text
	BotPlaceholder = "[GptBot]"

	promptHeader = "以下はSlackスレッドの履歴を含んだGPTプロンプトです。下記を踏まえて答えてください\n"
)

// TranscriptMessage represents one message of a chat thread
type TranscriptMessage struct {
	Text string `json:"text"`
	User string `json:"user"`
}

// Normalize anonymizes the bot identity and folds the text onto a single line
func (m TranscriptMessage) Normalize(botUserID string) string {
	text := m.Text
	if botUserID != "" {
		text = strings.ReplaceAll(text, botUserID, BotPlaceholder)
	}
	return collapseNewlines(strings.TrimSpace(text))
}

// Transcript is an ordered slice of thread messages, oldest first
type Transcript []TranscriptMessage

// Tail returns the newest max messages, keeping their order
func (t Transcript) Tail(max int) Transcript {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	if len(t) <= max {
		return t
	}
	return t[len(t)-max:]
}

// BuildPrompt renders the tail of the transcript as a single prompt string
func (t Transcript) BuildPrompt(botUserID string, maxMessages int) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, msg := range t.Tail(maxMessages) {
		b.WriteString(msg.User)
		b.WriteString(", message: ")
		b.WriteString(msg.Normalize(botUserID))
		b.WriteString("\n")
	}
	return b.String()
}

// BuildPrompt is a convenience wrapper over Transcript.BuildPrompt
func BuildPrompt(messages []TranscriptMessage, botUserID string, maxMessages int) string {
	return Transcript(messages).BuildPrompt(botUserID, maxMessages)
}

func collapseNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
