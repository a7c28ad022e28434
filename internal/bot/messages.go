package bot

import (
	"fmt"
	"strings"

	"github.com/iamserge/photolectic/internal/model"
)

// statusGlyphs は写真状態ごとの先頭絵文字。未知の状態には📷を使う。
var statusGlyphs = map[model.PhotoStatus]string{
	model.StatusVerified:      "✅",
	model.StatusPendingReview: "⏳",
	model.StatusRejected:      "❌",
	model.StatusUploading:     "📤",
}

func msgWelcomeBack(name string) string {
	return fmt.Sprintf(
		"👋 <b>Welcome back, %s!</b>\n\n"+
			"Send me photos to upload them to your portfolio.\n"+
			"Use /help to see all commands.",
		name,
	)
}

func msgWelcomeNew(dashboardURL string) string {
	return fmt.Sprintf(
		"📸 <b>Welcome to Photolectic!</b>\n\n"+
			"To get started, link your account:\n"+
			"1. Go to %s/onboarding\n"+
			"2. Complete the Telegram step\n"+
			"3. Send the /link code here\n\n"+
			"Already have a code? Send:\n<code>/link YOUR_CODE</code>",
		dashboardURL,
	)
}

func msgLinked(name string) string {
	return fmt.Sprintf(
		"✅ <b>Account Linked Successfully!</b>\n\n"+
			"Welcome, <b>%s</b>!\n\n"+
			"You can now:\n"+
			"📸 Send photos to upload them\n"+
			"📊 Use /stats to see your portfolio\n"+
			"📋 Use /photos to list recent uploads\n"+
			"❓ Use /help for all commands",
		name,
	)
}

func msgInvalidToken() string {
	return "❌ <b>Invalid or expired link code</b>\n\n" +
		"Please generate a new code from your Photolectic dashboard."
}

func msgLinkFailed() string {
	return "❌ <b>Linking Failed</b>\n\n" +
		"Something went wrong while linking your account. Please try again."
}

func msgNotLinked(dashboardURL string) string {
	return fmt.Sprintf(
		"🔗 <b>Account Not Linked</b>\n\n"+
			"Please link your Photolectic account first.\n"+
			"Go to %s/onboarding to get started.",
		dashboardURL,
	)
}

func msgNotPhotographer(dashboardURL string) string {
	return fmt.Sprintf(
		"📸 <b>Not a Photographer</b>\n\n"+
			"Complete the photographer onboarding at %s/onboarding to upload photos.",
		dashboardURL,
	)
}

func msgUnlinked() string {
	return "✅ <b>Account Unlinked</b>\n\nYou can link again anytime from your dashboard."
}

func msgStats(counts model.PhotoStatusCounts) string {
	return fmt.Sprintf(
		"📊 <b>Your Portfolio Stats</b>\n\n"+
			"📸 Total Photos: <b>%d</b>\n"+
			"✅ Verified: <b>%d</b>\n"+
			"⏳ Pending: <b>%d</b>\n"+
			"📩 License Requests: <b>%d</b>\n\n"+
			"Keep uploading great photos! 🌟",
		counts.Total, counts.Verified, counts.PendingReview, counts.LicenseRequest,
	)
}

func msgNoPhotos() string {
	return "📸 <b>No Photos Yet</b>\n\nSend me a photo to get started!"
}

func msgPhotoList(photos []model.PhotoSummary, dashboardURL string, sanitize func(string) string) string {
	lines := make([]string, 0, len(photos))
	for i, p := range photos {
		glyph, ok := statusGlyphs[p.Status]
		if !ok {
			glyph = "📷"
		}
		requests := ""
		if p.LicenseRequestCount > 0 {
			requests = fmt.Sprintf(" (%d requests)", p.LicenseRequestCount)
		}
		lines = append(lines, fmt.Sprintf("%d. %s <b>%s</b>%s", i+1, glyph, sanitize(p.Title), requests))
	}

	return fmt.Sprintf(
		"📸 <b>Recent Photos</b>\n\n%s\n\nView all photos at %s/dashboard",
		strings.Join(lines, "\n"), dashboardURL,
	)
}

func msgHelp() string {
	return "🤖 <b>Photolectic Bot Commands</b>\n\n" +
		"📸 <b>Send a photo</b> - Upload to your portfolio\n" +
		"📊 /stats - View portfolio statistics\n" +
		"📋 /photos - List recent uploads\n" +
		"🔗 /link [code] - Link your account\n" +
		"🔓 /unlink - Unlink your account\n" +
		"❓ /help - Show this message\n\n" +
		"<b>Tips:</b>\n" +
		"• Photos are auto-tagged with AI\n" +
		"• Add a caption for custom title\n" +
		"• High-res photos get better visibility"
}

func msgUploading() string {
	return "📤 <b>Uploading your photo...</b>\n\nAnalyzing with AI..."
}

func msgDownloadFailed() string {
	return "❌ Failed to download photo. Please try again."
}

func msgDuplicate(existingTitle string) string {
	return fmt.Sprintf(
		"⚠️ <b>Duplicate Photo</b>\n\nThis photo already exists in your portfolio as \"<b>%s</b>\".",
		existingTitle,
	)
}

func msgUploadFailed() string {
	return "❌ <b>Upload Failed</b>\n\nSomething went wrong. Please try again later."
}

func msgUploaded(title, description string, tags []string, category string) string {
	if len(tags) > 5 {
		tags = tags[:5]
	}
	hashtags := make([]string, 0, len(tags))
	for _, t := range tags {
		hashtags = append(hashtags, "#"+t)
	}

	return fmt.Sprintf(
		"✅ <b>Photo Uploaded!</b>\n\n"+
			"📷 <b>%s</b>\n"+
			"📝 %s\n\n"+
			"🏷️ %s\n"+
			"📂 Category: %s\n\n"+
			"Your photo is now pending review. We'll notify you when it's verified!",
		title, description, strings.Join(hashtags, " "), category,
	)
}
