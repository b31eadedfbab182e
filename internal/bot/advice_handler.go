package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/pipeline"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/vision"
)

// handleImage downloads an uploaded image and runs it through the pipeline.
// Called from session worker - no locking needed.
func (b *Bot) handleImage(ctx context.Context, session *UserSession, fileID string) {
	// A new image replaces any run still waiting for a manual label
	if session.pending != nil {
		log.Info().Int64("userId", session.userId).Str("runID", session.pending.RunID()).Msg("discarding pending run")
		session.pending = nil
	}

	stopTyping := session.startTyping(ctx)
	defer stopTyping()

	data, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, fileID)
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to download image")
		session.reply(MsgDownloadFailed)
		return
	}

	img, format, err := vision.DecodeImage(data)
	if err != nil {
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to decode image")
		session.reply(MsgImageDecodeFailed)
		return
	}
	log.Debug().Str("format", format).Int("bytes", len(data)).Msg("decoded image")

	res, err := b.runner.Run(b.progressContext(ctx, session), img)
	b.handleResult(session, res, err)
}

// handleManualLabel resumes a low-confidence run with the user's own label.
func (b *Bot) handleManualLabel(ctx context.Context, session *UserSession, label string) {
	pending := session.pending

	stopTyping := session.startTyping(ctx)
	defer stopTyping()

	res, err := pending.Resume(b.progressContext(ctx, session), label)
	if errors.Is(err, pipeline.ErrEmptyLabel) {
		b.askForManualLabel(session)
		return
	}
	session.pending = nil
	b.handleResult(session, res, err)
}

// progressContext makes the run post a progress message for each long step.
func (b *Bot) progressContext(ctx context.Context, session *UserSession) context.Context {
	return pipeline.WithRunObserver(ctx, pipeline.ObserverFunc(func(runID string, from, to pipeline.State) {
		switch to {
		case pipeline.StateDetecting:
			session.reply(MsgScanning)
		case pipeline.StateGeneratingAdvice:
			session.reply(MsgPreparingAdvice)
		}
	}))
}

func (b *Bot) handleResult(session *UserSession, res *pipeline.Result, err error) {
	if err != nil {
		session.replyPlain(describeError(err))
		return
	}

	switch res.State {
	case pipeline.StateAwaitingManualLabel:
		session.pending = res.Pending
		b.askForManualLabel(session)
	case pipeline.StateDone:
		items := MsgDetectedItems
		if res.ManualLabel {
			items = MsgManualItems
		}
		session.replyAndRemoveCustomKeyboard(items, escapeMarkdown(res.Summary.Text))
		if res.Advice == "" {
			session.reply(MsgEmptyAdvice)
			return
		}
		for _, part := range splitMessage(res.Advice, maxMessageLength) {
			session.replyPlain(part)
		}
	}
}

func (b *Bot) askForManualLabel(session *UserSession) {
	msg := tgbotapi.NewMessage(session.userId, formatReplyText(MsgLowConfidence, pipeline.DefaultManualLabel))
	msg.ParseMode = tgbotapi.ModeMarkdown
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(pipeline.DefaultManualLabel)),
	)
	keyboard.OneTimeKeyboard = true
	msg.ReplyMarkup = keyboard
	session.replyWithMessage(msg)
}

// describeError turns a failed run into the message shown to the user.
func describeError(err error) string {
	switch pipeline.StageOf(err) {
	case pipeline.StageDetection:
		// A failed removal is joined to the call error, which is the one to show
		var serviceErr *vision.ServiceError
		var formatErr *vision.FormatError
		if errors.As(err, &serviceErr) || errors.As(err, &formatErr) {
			return formatReplyText(MsgDetectionFailed, err.Error())
		}
		var tempErr *vision.TempFileError
		if errors.As(err, &tempErr) {
			return formatReplyText(MsgTempFileFailed, tempErr.Error())
		}
		return formatReplyText(MsgDetectionFailed, err.Error())
	case pipeline.StageAdvice:
		return formatReplyText(MsgAdviceFailed, err.Error())
	default:
		return formatReplyText(MsgProcessingFailed, err.Error())
	}
}
