// Package conversation provides intent parsing and user notification implementations.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// Classifier maps free text the keyword rules did not match to an
// intent. The tutor implements it.
type Classifier interface {
	Classify(ctx context.Context, input string) (*domain.Intent, error)
}

// KeywordParser matches user input to intents using keywords and simple patterns.
// Input nothing matches goes to the optional classifier, then falls back
// to a question for the tutor.
type KeywordParser struct {
	log        *logger.Logger
	patterns   []patternRule
	classifier Classifier
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
	// group is the submatch carried as payload; 0 means none.
	group int
}

// ParserOption configures a KeywordParser.
type ParserOption func(*KeywordParser)

// WithClassifier sets the fallback used for unmatched input.
func WithClassifier(c Classifier) ParserOption {
	return func(p *KeywordParser) { p.classifier = c }
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger, opts ...ParserOption) *KeywordParser {
	p := &KeywordParser{log: log}
	for _, o := range opts {
		o(p)
	}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(topics|list|browse|journey)$`), domain.IntentListTopics, 0},
		{regexp.MustCompile(`(?i)^(?:select|open|topic)\s+(\S+)$`), domain.IntentSelectTopic, 1},
		{regexp.MustCompile(`(?i)^(profile|me|xp|level)$`), domain.IntentProfile, 0},
		{regexp.MustCompile(`(?i)^(history|attempts)$`), domain.IntentHistory, 0},
		{regexp.MustCompile(`(?i)^(grammar|vocab|vocabulary|listening)$`), domain.IntentStartQuiz, 1},
		{regexp.MustCompile(`(?i)^([1-9])$`), domain.IntentAnswer, 1},
		{regexp.MustCompile(`(?i)^(?:pick|answer|choose)\s+(.+)$`), domain.IntentAnswer, 1},
		{regexp.MustCompile(`(?i)^(reveal|show questions)$`), domain.IntentReveal, 0},
		{regexp.MustCompile(`(?i)^(restart|retry|try again)$`), domain.IntentRestart, 0},
		{regexp.MustCompile(`(?i)^(dismiss|ok|got it|close)$`), domain.IntentDismiss, 0},
		{regexp.MustCompile(`(?i)^(fluency|speak)$`), domain.IntentFluency, 0},
		{regexp.MustCompile(`(?i)^(record|rec)$`), domain.IntentRecord, 0},
		{regexp.MustCompile(`(?i)^(pause|p)$`), domain.IntentPauseRecord, 0},
		{regexp.MustCompile(`(?i)^(resume|unpause)$`), domain.IntentResumeRecord, 0},
		{regexp.MustCompile(`(?i)^(stop|s|halt)$`), domain.IntentStop, 0},
		{regexp.MustCompile(`(?i)^play\s+(all|\d+)$`), domain.IntentPlay, 1},
		{regexp.MustCompile(`(?i)^(?:role|as)\s+([ab])$`), domain.IntentRole, 1},
		{regexp.MustCompile(`(?i)^turn\s+(\d+(?:\s+\S.*)?)$`), domain.IntentSubmitTurn, 1},
		{regexp.MustCompile(`(?i)^phrase(?:\s+(\S.*))?$`), domain.IntentSubmitPhrase, 1},
		{regexp.MustCompile(`(?i)^(?:rehearse|practice)\s+([ab])$`), domain.IntentRehearse, 1},
		{regexp.MustCompile(`(?i)^say\s+(.+)$`), domain.IntentSay, 1},
		{regexp.MustCompile(`(?i)^(listen|mic)$`), domain.IntentListen, 0},
		{regexp.MustCompile(`(?i)^(?:ask|tutor)\s+(.+)$`), domain.IntentAskQuestion, 1},
		{regexp.MustCompile(`(?i)^explain\s+(\d+)$`), domain.IntentExplain, 1},
		{regexp.MustCompile(`(?i)^export\s+(\S.*)$`), domain.IntentExport, 1},
		{regexp.MustCompile(`(?i)^review(?:\s+(\d+|prev|next|done))?$`), domain.IntentReview, 1},
		{regexp.MustCompile(`(?i)^(complete|finish topic)$`), domain.IntentComplete, 0},
		{regexp.MustCompile(`(?i)^(repeat|again|pardon)$`), domain.IntentRepeat, 0},
		{regexp.MustCompile(`(?i)^(status|where|progress|info)$`), domain.IntentStatus, 0},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp, 0},
		{regexp.MustCompile(`(?i)^(quit|exit|q|bye)$`), domain.IntentQuit, 0},
	}
	return p
}

// Parse converts user input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)
		intent := &domain.Intent{Type: rule.intent}
		if rule.group > 0 {
			intent.Payload = strings.TrimSpace(m[rule.group])
		}
		if intent.Type == domain.IntentStartQuiz || intent.Type == domain.IntentReview {
			intent.Payload = strings.ToLower(intent.Payload)
		}
		if intent.Type == domain.IntentRole || intent.Type == domain.IntentRehearse {
			intent.Payload = strings.ToUpper(intent.Payload)
		}
		return intent, nil
	}

	if p.classifier != nil {
		intent, err := p.classifier.Classify(ctx, trimmed)
		if err != nil {
			p.log.Warn("classifier failed, treating as question: %v", err)
		} else if intent.Type != domain.IntentUnknown {
			p.log.Debug("classified as %s", intent.Type)
			return intent, nil
		}
	}

	if isQuestion(trimmed) {
		return &domain.Intent{Type: domain.IntentAskQuestion, Payload: trimmed}, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

// questionPrefixes are common English question starters.
var questionPrefixes = []string{
	"how", "what", "why", "when", "where", "who",
	"can", "could", "should", "would", "will", "do", "does", "is", "are",
	"am i", "tell me",
}

// isQuestion returns true if the input looks like a question.
func isQuestion(s string) bool {
	if strings.HasSuffix(s, "?") {
		return true
	}
	lower := strings.ToLower(s)
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix+" ") || lower == prefix {
			return true
		}
	}
	return false
}
