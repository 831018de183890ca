// Package bot implements the conversation flow: resume upload, vacancy
// upload, and the analysis menu, driven by discrete inbound events. The
// transport adapter (telegram) lives in bot.go; everything else is
// transport-agnostic and testable without a network.
package bot

// Event is one inbound user interaction. Events for the same chat are
// handled strictly one at a time; different chats are handled concurrently.
type Event interface {
	ChatID() int64
}

// TextMessage is a plain text message, including commands and pasted links.
type TextMessage struct {
	Chat     int64
	Username string
	Text     string
}

func (e TextMessage) ChatID() int64 { return e.Chat }

// DocumentMessage is an uploaded file with its decoded content.
// DownloadFailed marks an upload whose content could not be fetched from the
// transport; such a message never reaches verification.
type DocumentMessage struct {
	Chat           int64
	Username       string
	Filename       string
	Data           []byte
	DownloadFailed bool
}

func (e DocumentMessage) ChatID() int64 { return e.Chat }

// ButtonTap is an inline keyboard callback.
type ButtonTap struct {
	Chat     int64
	Username string
	Key      string
}

func (e ButtonTap) ChatID() int64 { return e.Chat }

// Button is one inline keyboard button.
type Button struct {
	Label string
	Key   string
}

// Keyboard is an inline keyboard layout.
type Keyboard struct {
	Rows [][]Button
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard *Keyboard
}
