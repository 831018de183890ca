package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"resumebot/pkg/logx"
)

// telegram caps a single message at 4096 characters; long analyses are
// split on that boundary.
const telegramMessageLimit = 4096

// Bot connects the conversation engine to the telegram API. Updates for the
// same chat are processed sequentially by a per-chat worker; different chats
// run concurrently.
type Bot struct {
	api          *tgbotapi.BotAPI
	conversation *Conversation
	timeout      time.Duration
	httpClient   *http.Client
	logger       *logx.Logger

	mu      sync.Mutex
	workers map[int64]chan Event
	wg      sync.WaitGroup
}

// New creates the bot transport.
func New(token string, conversation *Conversation, updateTimeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Bot{
		api:          api,
		conversation: conversation,
		timeout:      updateTimeout,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logx.NewLogger("bot"),
		workers:      make(map[int64]chan Event),
	}, nil
}

// Run consumes updates until ctx is canceled, then drains the per-chat
// workers.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.timeout.Seconds())
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("bot started as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.shutdown()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.shutdown()
				return nil
			}
			event := b.toEvent(update)
			if event == nil {
				continue
			}
			b.dispatch(ctx, event)
		}
	}
}

// toEvent maps a telegram update onto a conversation event, downloading
// document content when needed.
func (b *Bot) toEvent(update tgbotapi.Update) Event {
	if cq := update.CallbackQuery; cq != nil && cq.Message != nil {
		// Acknowledge so the client stops showing a spinner.
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.logger.Warn("failed to answer callback: %v", err)
		}
		return ButtonTap{
			Chat:     cq.Message.Chat.ID,
			Username: cq.From.UserName,
			Key:      cq.Data,
		}
	}

	msg := update.Message
	if msg == nil {
		return nil
	}
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	if doc := msg.Document; doc != nil {
		data, err := b.downloadFile(doc.FileID)
		if err != nil {
			b.logger.Warn("failed to download document from chat %d: %v", msg.Chat.ID, err)
			// A transport failure is not a verification rejection; the
			// conversation answers with a retry prompt instead.
			return DocumentMessage{
				Chat:           msg.Chat.ID,
				Username:       username,
				Filename:       doc.FileName,
				DownloadFailed: true,
			}
		}
		return DocumentMessage{
			Chat:     msg.Chat.ID,
			Username: username,
			Filename: doc.FileName,
			Data:     data,
		}
	}

	if msg.Text != "" {
		return TextMessage{Chat: msg.Chat.ID, Username: username, Text: msg.Text}
	}
	return nil
}

func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file URL: %w", err)
	}
	resp, err := b.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}

// dispatch hands the event to the chat's worker, starting one on first
// contact.
func (b *Bot) dispatch(ctx context.Context, event Event) {
	b.mu.Lock()
	ch, ok := b.workers[event.ChatID()]
	if !ok {
		ch = make(chan Event, 16)
		b.workers[event.ChatID()] = ch
		b.wg.Add(1)
		go b.worker(ctx, ch)
	}
	b.mu.Unlock()

	select {
	case ch <- event:
	default:
		b.logger.Warn("dropping event for busy chat %d", event.ChatID())
	}
}

func (b *Bot) worker(ctx context.Context, events <-chan Event) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			for _, reply := range b.conversation.HandleEvent(ctx, event) {
				b.send(event.ChatID(), reply)
			}
		}
	}
}

func (b *Bot) send(chatID int64, reply Reply) {
	chunks := splitMessage(reply.Text, telegramMessageLimit)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		// Keyboard goes on the last chunk only.
		if reply.Keyboard != nil && i == len(chunks)-1 {
			msg.ReplyMarkup = toInlineKeyboard(reply.Keyboard)
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("failed to send message to chat %d: %v", chatID, err)
		}
	}
}

func (b *Bot) shutdown() {
	b.mu.Lock()
	for _, ch := range b.workers {
		close(ch)
	}
	b.workers = make(map[int64]chan Event)
	b.mu.Unlock()
	b.wg.Wait()
	b.logger.Info("bot stopped")
}

func toInlineKeyboard(kb *Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Key))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// splitMessage cuts text into chunks that fit the telegram message limit,
// preferring newline boundaries and never splitting a rune.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := limit
		if idx := strings.LastIndexByte(text[:limit], '\n'); idx > limit/2 {
			cut = idx + 1
		} else {
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
