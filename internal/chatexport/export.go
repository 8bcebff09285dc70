// Package chatexport renders a conversation as a plain text transcript.
package chatexport

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"chatdesk-backend/internal/models"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	separators = regexp.MustCompile(`[/\\]+`)
)

// Format renders the transcript. now is the export date and loc the zone timestamps are shown in.
func Format(title string, messages []models.Message, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Chat: %s\nDate: %s\n\n", title, now.In(loc).Format("2006-01-02"))
	for _, m := range messages {
		speaker := "User"
		if m.IsAI {
			speaker = "AI"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", m.CreatedAt.In(loc).Format("15:04:05"), speaker, m.Content)
	}
	return b.String()
}

// Filename is the lower-cased title with whitespace runs turned into dashes, plus the export date.
// Path separators become dashes too since the name is also an object key.
func Filename(title string, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	slug := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	slug = whitespace.ReplaceAllString(slug, "-")
	if slug == "" {
		slug = "chat"
	}
	return fmt.Sprintf("%s-%s.txt", slug, now.In(loc).Format("2006-01-02"))
}
