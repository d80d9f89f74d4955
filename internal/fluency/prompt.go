package fluency

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

const descriptionLimit = 160

// BuildPrompt returns what the learner should talk about. The topic's
// own first fluency prompt wins; otherwise one is assembled from the
// title, description, and material.
func BuildPrompt(topic *domain.Topic) string {
	if topic == nil {
		return ""
	}
	if len(topic.FluencyPrompts) > 0 && strings.TrimSpace(topic.FluencyPrompts[0]) != "" {
		return topic.FluencyPrompts[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Speak for about 30 seconds about: \"%s\".", topic.Title)
	if strings.TrimSpace(topic.Description) != "" {
		b.WriteString(" Consider: ")
		b.WriteString(takeRunes(topic.Description, descriptionLimit))
	}
	if len(topic.Material) > 0 {
		n := min(3, len(topic.Material))
		b.WriteString(" Try to include: ")
		b.WriteString(strings.Join(topic.Material[:n], "; "))
		b.WriteString(".")
	}
	return b.String()
}

func takeRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
