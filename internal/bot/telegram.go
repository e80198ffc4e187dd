package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

const (
	defaultPollTimeout = 30 * time.Second
	fallbackReply      = "Something went wrong. Please try again."
)

// telegramAPI is the subset of *tgbotapi.BotAPI the poller uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type updateHandler interface {
	Handle(ctx context.Context, upd Update) ([]Reply, error)
}

// Poller long-polls the chat API and feeds updates through the handler.
type Poller struct {
	api     telegramAPI
	handler updateHandler
	logg    *logger.Logger
	timeout time.Duration
}

// NewPoller builds a long-polling adapter.
func NewPoller(api telegramAPI, handler updateHandler, logg *logger.Logger, timeout time.Duration) (*Poller, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram api required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{api: api, handler: handler, logg: logg, timeout: timeout}, nil
}

// Run processes updates in arrival order until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(p.timeout.Seconds())
	updates := p.api.GetUpdatesChan(cfg)
	p.logg.Info(ctx, "bot.polling_started")

	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logg.Info(ctx, "bot.polling_stopped")
			return ctx.Err()
		case raw, ok := <-updates:
			if !ok {
				return fmt.Errorf("update channel closed")
			}
			p.dispatch(ctx, raw)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, raw tgbotapi.Update) {
	upd, ok := fromTelegram(raw)
	if !ok {
		return
	}
	ctx = p.logg.WithChatID(ctx, upd.ChatID)

	if upd.CallbackID != "" {
		if _, err := p.api.Request(tgbotapi.NewCallback(upd.CallbackID, "")); err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "bot.callback_ack_failed")
		}
	}

	replies, err := p.handler.Handle(ctx, upd)
	if err != nil {
		p.logg.Error(ctx, "bot.handle_failed", err)
		replies = []Reply{{Text: fallbackReply}}
	}
	for _, reply := range replies {
		if _, err := p.api.Send(toTelegram(upd.ChatID, reply)); err != nil {
			p.logg.Error(ctx, "bot.send_failed", err)
			return
		}
	}
}

func fromTelegram(raw tgbotapi.Update) (Update, bool) {
	switch {
	case raw.Message != nil && raw.Message.Chat != nil:
		msg := raw.Message
		upd := Update{ChatID: msg.Chat.ID, Text: msg.Text}
		if msg.From != nil {
			upd.UserID = msg.From.ID
			upd.Username = msg.From.UserName
		}
		if msg.IsCommand() {
			upd.Text = "/" + msg.Command()
		}
		if msg.Contact != nil {
			upd.Contact = &Contact{Phone: msg.Contact.PhoneNumber, UserID: msg.Contact.UserID}
		}
		return upd, true
	case raw.CallbackQuery != nil && raw.CallbackQuery.Message != nil && raw.CallbackQuery.Message.Chat != nil:
		cb := raw.CallbackQuery
		upd := Update{
			ChatID:     cb.Message.Chat.ID,
			Callback:   cb.Data,
			CallbackID: cb.ID,
		}
		if cb.From != nil {
			upd.UserID = cb.From.ID
			upd.Username = cb.From.UserName
		}
		return upd, true
	default:
		return Update{}, false
	}
}

func toTelegram(chatID int64, reply Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	switch {
	case len(reply.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Inline))
		for _, line := range reply.Inline {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(line))
			for _, b := range line {
				if b.URL != "" {
					row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
					continue
				}
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
			rows = append(rows, row)
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	case len(reply.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Keyboard))
		for _, line := range reply.Keyboard {
			row := make([]tgbotapi.KeyboardButton, 0, len(line))
			for _, b := range line {
				if b.RequestContact {
					row = append(row, tgbotapi.NewKeyboardButtonContact(b.Text))
					continue
				}
				row = append(row, tgbotapi.NewKeyboardButton(b.Text))
			}
			rows = append(rows, row)
		}
		msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	case reply.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return msg
}
