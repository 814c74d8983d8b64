// ABOUTME: Telegram transport adapter over long polling
// ABOUTME: Classifies raw updates into the inbound event union and renders replies
package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var errNotEditable = errors.New("message is not editable in place")

// Telegram drives the bot over the Telegram Bot API. Each update is
// handled in its own goroutine; a hung outbound call stalls only that
// update's handling.
type Telegram struct {
	api        *tgbotapi.BotAPI
	controller *Controller
}

func NewTelegram(token string, controller *Controller) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, controller: controller}, nil
}

// Run consumes updates until the context is cancelled. Cancellation stops
// the update feed only; in-flight handlers are not awaited.
func (t *Telegram) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		t.api.StopReceivingUpdates()
	}()

	log.Printf("bot running as @%s", t.api.Self.UserName)

	for update := range updates {
		ev, replier, ok := t.classify(update)
		if !ok {
			continue
		}
		go t.controller.HandleEvent(context.Background(), ev, replier)
	}
}

// Notify sends a plain text message to a user outside any inbound event,
// e.g. after the OAuth callback completes. For private chats the chat id
// equals the user id.
func (t *Telegram) Notify(userID int64, text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

// classify maps a raw update onto the inbound event union.
func (t *Telegram) classify(update tgbotapi.Update) (Event, Replier, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil {
			return Event{}, nil, false
		}
		ev := Event{
			UserID: cb.From.ID,
			Kind:   KindButton,
			Action: cb.Data,
		}
		r := &telegramReplier{
			api:        t.api,
			chatID:     cb.Message.Chat.ID,
			messageID:  cb.Message.MessageID,
			callbackID: cb.ID,
		}
		return ev, r, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return Event{}, nil, false
	}

	r := &telegramReplier{api: t.api, chatID: msg.Chat.ID}
	ev := Event{UserID: msg.From.ID}

	if msg.IsCommand() {
		ev.Kind = KindCommand
		ev.Command = msg.Command()
		return ev, r, true
	}

	ev.Text = strings.TrimSpace(msg.Text)
	if ev.Text == "" {
		ev.Text = strings.TrimSpace(msg.Caption)
	}

	if isForwarded(msg) {
		ev.Kind = KindForward
		if msg.ForwardFromChat != nil {
			ev.SourceChatTitle = msg.ForwardFromChat.Title
		}
		ev.SourceSenderName = forwardSenderName(msg)
		return ev, r, true
	}

	ev.Kind = KindMessage
	return ev, r, true
}

func isForwarded(msg *tgbotapi.Message) bool {
	return msg.ForwardDate != 0 ||
		msg.ForwardFrom != nil ||
		msg.ForwardSenderName != "" ||
		msg.ForwardFromChat != nil
}

func forwardSenderName(msg *tgbotapi.Message) string {
	if msg.ForwardSenderName != "" {
		return msg.ForwardSenderName
	}
	if msg.ForwardFrom != nil {
		return strings.TrimSpace(msg.ForwardFrom.FirstName + " " + msg.ForwardFrom.LastName)
	}
	return ""
}

// telegramReplier renders responses back into the chat an event came
// from. messageID is only set for button presses, where edit-in-place is
// possible.
type telegramReplier struct {
	api        *tgbotapi.BotAPI
	chatID     int64
	messageID  int
	callbackID string
}

func (r *telegramReplier) Reply(text string, rows ...[]Button) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	_, err := r.api.Send(msg)
	return err
}

func (r *telegramReplier) Edit(text string, rows ...[]Button) error {
	if r.messageID == 0 {
		return errNotEditable
	}
	edit := tgbotapi.NewEditMessageText(r.chatID, r.messageID, text)
	if kb, ok := keyboard(rows); ok {
		edit.ReplyMarkup = &kb
	}
	_, err := r.api.Send(edit)
	return err
}

func (r *telegramReplier) AnswerCallback() error {
	if r.callbackID == "" {
		return nil
	}
	_, err := r.api.Request(tgbotapi.NewCallback(r.callbackID, ""))
	return err
}

func keyboard(rows [][]Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
