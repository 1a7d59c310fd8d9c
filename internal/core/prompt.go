package core

import "fmt"

const systemPromptTemplate = `You are an assistant that generates commit messages for the provided code diff.

You must:
- Generate a message in the format: <prefix>: <summary>
- Prefix: fix, feat, refactor, docs, test, chore, etc.
- Summary: max %d chars, only lowercase, numbers, spaces, colons, periods.

ALSO incorporate any additional user feedback given after the diff as new requirements on how to phrase or adjust the commit message.

Return ONLY the commit message. No quotes. No explanation.`

const (
	diffTemplate   = "\nDiff:\n%s"
	feedbackPrefix = "Feedback: "
)

// SystemPrompt renders the default instruction for a summary ceiling.
func SystemPrompt(maxChars int) string {
	if maxChars <= 0 {
		maxChars = StrictMaxLength
	}
	return fmt.Sprintf(systemPromptTemplate, maxChars)
}

func DiffPrompt(diff string) string {
	return fmt.Sprintf(diffTemplate, diff)
}

func FeedbackPrompt(feedback string) string {
	return feedbackPrefix + feedback
}
