// Package telegram is the send-only Telegram transport. The bot never polls
// for updates; it only posts messages to configured chats.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"chombot/internal/transport"
	logx "chombot/pkg/logx"
)

// MaxMessageRunes is the Bot API limit for one text message.
const MaxMessageRunes = 4096

const defaultTimeout = 15 * time.Second

var ErrNotRunning = errors.New("telegram adapter is not running")

type Config struct {
	Token   string
	Timeout time.Duration
	// APIURL overrides the Bot API endpoint (tests, local bot api server).
	APIURL string
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	mu      sync.Mutex
	running bool
	self    string
}

var _ transport.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: cfg.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// Start checks the token with getMe. Sends are rejected until it succeeds.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	me, err := a.getMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	a.self = me
	a.running = true
	a.log.Info("telegram adapter started", logx.String("bot", me))
	return nil
}

func (a *Adapter) getMe(ctx context.Context) (string, error) {
	type result struct {
		user *tele.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var resp struct {
			Result *tele.User `json:"result"`
		}
		data, err := a.bot.Raw("getMe", nil)
		if err == nil {
			err = json.Unmarshal(data, &resp)
		}
		done <- result{user: resp.Result, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if r.user == nil {
			return "", errors.New("empty getMe result")
		}
		return r.user.Username, nil
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	a.log.Info("telegram adapter stopped")
	return nil
}

// SendText posts one message. It does not chunk: text over MaxMessageRunes
// fails with transport.ErrMessageTooLong before any request is made.
func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		return transport.MessageRef{}, ErrNotRunning
	}
	if n := utf8.RuneCountInString(text); n > MaxMessageRunes {
		return transport.MessageRef{}, fmt.Errorf("%w: %d runes", transport.ErrMessageTooLong, n)
	}
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	if err := ctx.Err(); err != nil {
		return transport.MessageRef{}, err
	}

	sendOpt := &tele.SendOptions{
		ParseMode:             tele.ParseMode(opt.ParseMode),
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}

	type result struct {
		msg *tele.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, text, sendOpt)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return transport.MessageRef{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, tele.ErrTooLongMessage) {
				return transport.MessageRef{}, fmt.Errorf("%w: %v", transport.ErrMessageTooLong, r.err)
			}
			return transport.MessageRef{}, r.err
		}
		ref := transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID}
		if r.msg != nil {
			ref.MessageID = r.msg.ID
		}
		return ref, nil
	}
}
