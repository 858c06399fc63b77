package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

const (
	apologyText = "Sorry, I'm having trouble connecting right now. Please try again later. 😅"

	toolLoopApologyText = "Sorry, I couldn't finish looking that up. Please try asking again in a different way. 😅"

	// FeedbackPromptText opens the feedback flow.
	FeedbackPromptText = "I'd be happy to help with your feedback. On a scale of 1 to 5, how would you rate your overall experience?"

	// ratingPromptMarker identifies a rating prompt, whether we or the model asked it.
	ratingPromptMarker = "how would you rate your overall experience?"
)

var renamePattern = regexp.MustCompile(`^/rename\s+(?:"([^"]+)"|'([^']+)'|(.+))$`)

func greetingText(u domain.User) string {
	return fmt.Sprintf("Hey %s, how can I help you? 😊", u.FirstName())
}

func renameAckText(name string) string {
	return fmt.Sprintf("Chat renamed to \"%s\".", name)
}

// parseRename recognizes "/rename NAME". A capture that trims to nothing is
// not a command.
func parseRename(text string) (string, bool) {
	m := renamePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	var name string
	for _, g := range m[1:] {
		if g != "" {
			name = g
			break
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}

func isGreeting(text string) bool {
	return domain.IsGreeting(text)
}

func isRatingPrompt(msg domain.Message) bool {
	return msg.Sender == domain.SenderAI && strings.Contains(msg.Text, ratingPromptMarker)
}

// envelope prefixes the user text with the identity fields the model needs.
// It is never shown to the user.
func envelope(u domain.User, text string) string {
	return fmt.Sprintf("(User Details: UserID=%d, FullName=%s, Email=%s)\n\nUser query: %s",
		u.ID, u.FullName, u.Email, text)
}
