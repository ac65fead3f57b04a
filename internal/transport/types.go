package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMessageTooLong is returned by a Sender when a single message exceeds
// what the platform accepts. Callers are expected to chunk before sending.
var ErrMessageTooLong = errors.New("message too long")

// ChatTarget addresses one delivery destination.
type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

func (t ChatTarget) String() string {
	if t.ThreadID != 0 {
		return fmt.Sprintf("%d/%d", t.ChatID, t.ThreadID)
	}
	return strconv.FormatInt(t.ChatID, 10)
}

// ParseChatTarget accepts "<chat_id>" or "<chat_id>/<thread_id>".
func ParseChatTarget(raw string) (ChatTarget, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ChatTarget{}, errors.New("chat target is empty")
	}
	chatPart, threadPart, hasThread := strings.Cut(s, "/")
	chatID, err := strconv.ParseInt(strings.TrimSpace(chatPart), 10, 64)
	if err != nil {
		return ChatTarget{}, fmt.Errorf("invalid chat id %q: %w", chatPart, err)
	}
	if chatID == 0 {
		return ChatTarget{}, fmt.Errorf("invalid chat id %q: must be non-zero", chatPart)
	}
	t := ChatTarget{ChatID: chatID}
	if hasThread {
		threadID, err := strconv.Atoi(strings.TrimSpace(threadPart))
		if err != nil || threadID < 0 {
			return ChatTarget{}, fmt.Errorf("invalid thread id %q", threadPart)
		}
		t.ThreadID = threadID
	}
	return t, nil
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers one already-chunked message to one target.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Adapter is a Sender with a lifecycle.
type Adapter interface {
	Sender
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
