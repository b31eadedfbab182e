package bot

import (
	"context"
	"image"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/pipeline"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Runner starts a pipeline run for one image.
type Runner interface {
	Run(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// Models names the models shown in the start banner.
type Models struct {
	Vision string
	Advice string
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg         BotAPI
	state      BotState
	runner     Runner
	models     Models
	downloader *ImageDownloader
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, runner Runner, models Models) *Bot {
	bot := &Bot{
		tg:         tg,
		runner:     runner,
		models:     models,
		downloader: NewImageDownloader(),
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	session := b.state.getUserSession(message.From.ID)

	msg := SessionMessage{Ctx: ctx, Message: message}
	switch {
	case len(message.Photo) > 0:
		msg.Type = "photo"
	case message.Document != nil:
		msg.Type = "document"
	default:
		msg.Type = "text"
	}

	log.Info().
		Int64("userId", message.From.ID).
		Str("type", msg.Type).
		Str("text", message.Text).
		Msg("got message")

	if sync {
		session.SendSync(msg)
	} else {
		session.Send(msg)
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "photo":
		b.handlePhotoMessage(ctx, session, msg.Message)
	case "document":
		b.handleDocumentMessage(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	}
}

func (b *Bot) handlePhotoMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	// Telegram sends several sizes, largest last
	photo := message.Photo[len(message.Photo)-1]
	b.handleImage(ctx, session, photo.FileID)
}

func (b *Bot) handleDocumentMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if !isImageDocument(message.Document) {
		session.reply(MsgUnsupportedFile)
		return
	}
	if message.Document.FileSize > DefaultMaxImageSize {
		session.reply(MsgImageTooLarge)
		return
	}
	b.handleImage(ctx, session, message.Document.FileID)
}

func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if strings.HasPrefix(message.Text, "/") {
		b.handleCommand(session, message)
		return
	}

	if session.pending != nil && strings.TrimSpace(message.Text) != "" {
		b.handleManualLabel(ctx, session, message.Text)
		return
	}

	session.reply(MsgSendPhoto)
}

// handleCommand processes bot commands.
func (b *Bot) handleCommand(session *UserSession, message *tgbotapi.Message) {
	command, _ := parseCommand(message.Text)
	switch command {
	case "/start":
		session.reply(MsgStart, b.models.Vision, b.models.Advice)
	case "/help":
		session.reply(MsgHelp, pipeline.DefaultManualLabel)
	case "/cancel":
		if session.pending == nil {
			session.reply(MsgNothingToCancel)
			return
		}
		session.reset()
		session.replyAndRemoveCustomKeyboard(MsgCancelled)
	default:
		session.reply(MsgUnknownCommand)
	}
}

func isImageDocument(doc *tgbotapi.Document) bool {
	if doc == nil {
		return false
	}
	if strings.HasPrefix(doc.MimeType, "image/") {
		return true
	}
	name := strings.ToLower(doc.FileName)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
