// Package notification provides implementations for various notification services
package notification

import (
	"fmt"
	"strings"
	"time"

	"slices"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/helixtrade/momentum/core"
)

const (
	pollingTimeout = 10 * time.Second
)

// Telegram implements the core.NotifierWithStart interface
type Telegram struct {
	users       []int64
	defaultMenu *tb.ReplyMarkup
	client      *tb.Bot
	status      func() string
	log         core.Logger
}

// Option is a function that configures a telegram instance
type Option func(telegram *Telegram)

// WithStatusProvider configures the /status command response
func WithStatusProvider(status func() string) Option {
	return func(telegram *Telegram) {
		telegram.status = status
	}
}

// NewTelegram creates and initializes a new Telegram service. Only the
// listed user ids may interact with the bot.
func NewTelegram(token string, users []int64, log core.Logger, options ...Option) (
	core.NotifierWithStart,
	error,
) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: pollingTimeout}
	userMiddleware := newAuthMiddleware(poller, users, log)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     token,
		Poller:    userMiddleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	setupKeyboard(menu)
	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		users:       users,
		client:      client,
		defaultMenu: menu,
		log:         log,
	}

	for _, option := range options {
		option(bot)
	}

	client.Handle("/help", bot.HelpHandle)
	client.Handle("/status", bot.StatusHandle)

	return bot, nil
}

// newAuthMiddleware creates a middleware to validate authorized users
func newAuthMiddleware(poller *tb.LongPoller, users []int64, log core.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("message or sender is nil ", u)
			return false
		}

		if slices.Contains(users, u.Message.Sender.ID) {
			return true
		}

		log.Error("unauthorized user ", u.Message.Sender.ID)
		return false
	})
}

// setupKeyboard configures the reply keyboard layout
func setupKeyboard(menu *tb.ReplyMarkup) {
	var (
		statusBtn = menu.Text("/status")
		helpBtn   = menu.Text("/help")
	)

	menu.Reply(
		menu.Row(statusBtn, helpBtn),
	)
}

// setupCommands configures available bot commands
func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/status", Description: "Check worker status"},
	})
}

// Start begins the Telegram bot and notifies all authorized users
func (t *Telegram) Start() {
	go t.client.Start()
	t.sendMessageWithOptions("Bot initialized.", t.defaultMenu)
}

// Notify sends a message to all authorized users
func (t *Telegram) Notify(text string) {
	for _, user := range t.users {
		_, err := t.client.Send(&tb.User{ID: user}, text)
		if err != nil {
			t.log.WithError(err).Error("failed to send notification")
		}
	}
}

// sendMessageWithOptions sends a message to all authorized users with additional options
func (t *Telegram) sendMessageWithOptions(text string, options ...any) {
	for _, user := range t.users {
		_, err := t.client.Send(&tb.User{ID: user}, text, options...)
		if err != nil {
			t.log.WithError(err).Error("failed to send notification with options")
		}
	}
}

// sendMessage sends a message to a specific user
func (t *Telegram) sendMessage(to *tb.User, text string, options ...any) {
	_, err := t.client.Send(to, text, options...)
	if err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle displays available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get commands")
		t.OnError(err)
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", command.Text, command.Description))
	}

	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// StatusHandle displays the current worker status
func (t *Telegram) StatusHandle(m *tb.Message) {
	if t.status == nil {
		t.sendMessage(m.Sender, "Status: `unknown`")
		return
	}
	t.sendMessage(m.Sender, fmt.Sprintf("Status: `%s`", t.status()))
}

// OnPositionOpened notifies users about a newly opened position
func (t *Telegram) OnPositionOpened(position *core.Position) {
	message := fmt.Sprintf("✅ POSITION OPENED - %s\n-----\n%s", position.Pair, position)
	if len(position.EntrySignals) > 0 {
		message += fmt.Sprintf("\nSignals: `%s`", strings.Join(position.EntrySignals, ", "))
	}
	t.Notify(message)
}

// OnPositionClosed notifies users about a closed position
func (t *Telegram) OnPositionClosed(position *core.Position) {
	title := fmt.Sprintf("🔔 POSITION CLOSED - %s", position.Pair)
	if position.ExitPnLQuote != nil && *position.ExitPnLQuote < 0 {
		title = fmt.Sprintf("🔻 POSITION CLOSED - %s", position.Pair)
	}

	message := fmt.Sprintf("%s\n-----\n%s", title, position)
	if position.ExitPnLPercent != nil {
		message += fmt.Sprintf("\nPnL: `%.2f%%`", *position.ExitPnLPercent)
	}
	t.Notify(message)
}

// OnError notifies users about errors
func (t *Telegram) OnError(err error) {
	var sb strings.Builder
	sb.WriteString("🛑 ERROR\n")
	sb.WriteString("-----\n")
	sb.WriteString(err.Error())

	t.Notify(sb.String())
}
