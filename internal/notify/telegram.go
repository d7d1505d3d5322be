package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tycoon-engine/internal/model"
)

// Sender is the part of *tele.Bot the Telegram emitter uses.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram posts operator-facing events to a chat. Only the kinds it was
// created with are forwarded.
type Telegram struct {
	sender Sender
	chat   tele.ChatID
	kinds  map[string]bool
	queue  chan Event
}

// DefaultTelegramKinds are the events worth paging an operator for.
var DefaultTelegramKinds = []string{model.EventCompanyBankrupted, model.EventAchievementUnlocked}

// NewTelegramBot creates a send-only bot for token.
func NewTelegramBot(token string) (*tele.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegram creates an emitter posting kinds to chat through sender.
func NewTelegram(sender Sender, chat int64, buffer int, kinds ...string) *Telegram {
	if buffer <= 0 {
		buffer = 64
	}
	if len(kinds) == 0 {
		kinds = DefaultTelegramKinds
	}
	t := &Telegram{
		sender: sender,
		chat:   tele.ChatID(chat),
		kinds:  make(map[string]bool, len(kinds)),
		queue:  make(chan Event, buffer),
	}
	for _, k := range kinds {
		t.kinds[k] = true
	}
	return t
}

// Emit queues ev if its kind is forwarded.
func (t *Telegram) Emit(ev Event) {
	if !t.kinds[ev.Kind] {
		return
	}
	select {
	case t.queue <- ev:
	default:
		dropped("telegram", ev)
	}
}

// Run sends queued events until ctx is done.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.queue:
			if _, err := t.sender.Send(t.chat, FormatEvent(ev)); err != nil {
				log.Warn().Err(err).Str("event_id", ev.ID).Str("kind", ev.Kind).Msg("Failed to send telegram notification")
			}
		}
	}
}

// FormatEvent renders ev as a short chat message.
func FormatEvent(ev Event) string {
	var b strings.Builder
	switch ev.Kind {
	case model.EventCompanyBankrupted:
		fmt.Fprintf(&b, "💸 Company %d went bankrupt", ev.CompanyID)
	case model.EventAchievementUnlocked:
		fmt.Fprintf(&b, "🏆 User %d unlocked an achievement", ev.UserID)
	default:
		fmt.Fprintf(&b, "%s", ev.Kind)
	}
	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, ev.Payload[k])
	}
	return b.String()
}
