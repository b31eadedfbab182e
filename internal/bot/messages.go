package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgStart = `
		♻️ *Recycling Advisor*

		Send me a photo of your trash and I will tell you how to sort and recycle each item.

		Vision model: ` + "`%s`" + `
		Reasoning model: ` + "`%s`" + `

		Supported formats: JPG, PNG, GIF, WebP.`

	MsgHelp = `
		Send a photo (or an image file) of the items you want to throw away.

		I detect the objects in it and reply with the material, preparation, correct bin and what happens after collection for each of them.

		If nothing is recognized with enough confidence, tell me what is in the picture or pick *%s*.

		/cancel discards a photo waiting for a label.`

	MsgSendPhoto       = "Send a photo of your trash to get recycling advice."
	MsgUnknownCommand  = "Unknown command. Send a photo or use /help."
	MsgCancelled       = "Ok, cancelled."
	MsgNothingToCancel = "Nothing to cancel."
)

// =============================================================================
// Image upload messages
// =============================================================================

const (
	MsgUnsupportedFile   = "That file is not an image. Send a JPG, PNG, GIF or WebP picture."
	MsgImageTooLarge     = "The image is too large. Send a picture under 10 MB."
	MsgDownloadFailed    = "Could not download the image from Telegram. Please try again."
	MsgImageDecodeFailed = "Could not read the image. Send a JPG, PNG, GIF or WebP picture."
)

// =============================================================================
// Pipeline progress and results
// =============================================================================

const (
	MsgScanning        = "🔍 Scanning objects in image..."
	MsgPreparingAdvice = "♻️ Preparing recycling advice..."
	MsgDetectedItems   = "*Detected items:* %s"
	MsgManualItems     = "*Your items:* %s"
	MsgEmptyAdvice     = "The advice service returned an empty answer. Please try again."

	MsgLowConfidence = `
		I could not identify the items with confidence.

		Tell me what is in the picture, or pick *%s*.`
)

// =============================================================================
// Failures, sent as plain text
// =============================================================================

const (
	MsgDetectionFailed  = "Object detection failed: %s"
	MsgTempFileFailed   = "Could not stage the image for detection: %s"
	MsgAdviceFailed     = "Could not get recycling advice: %s"
	MsgProcessingFailed = "Something went wrong while processing the image: %s"
)
