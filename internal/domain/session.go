package domain

import (
	"fmt"
	"strings"
	"time"
)

// PracticeMode identifies one of a topic's practice flows.
type PracticeMode int

const (
	ModePronunciation PracticeMode = iota
	ModeFluency
	ModeVocabulary
	ModeListening
	ModeGrammar
	ModeConversation
)

// String returns the mode name used in URLs and logs.
func (m PracticeMode) String() string {
	switch m {
	case ModePronunciation:
		return "pronunciation"
	case ModeFluency:
		return "fluency"
	case ModeVocabulary:
		return "vocabulary"
	case ModeListening:
		return "listening"
	case ModeGrammar:
		return "grammar"
	case ModeConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// IsQuiz reports whether the mode is a multiple-choice question session.
func (m PracticeMode) IsQuiz() bool {
	return m == ModeVocabulary || m == ModeListening || m == ModeGrammar
}

var modeNames = map[string]PracticeMode{
	"pronunciation": ModePronunciation,
	"fluency":       ModeFluency,
	"vocabulary":    ModeVocabulary,
	"vocab":         ModeVocabulary,
	"listening":     ModeListening,
	"grammar":       ModeGrammar,
	"conversation":  ModeConversation,
}

// ParsePracticeMode converts a mode name to a PracticeMode.
func ParsePracticeMode(name string) (PracticeMode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown practice mode %q", name)
}

// Question is one multiple-choice item in a quiz session. Prompt holds
// the grammar sentence, vocabulary definition, or listening question.
type Question struct {
	ID      string
	Prompt  string
	Options []string
}

// Session is the client-side state of one run through a quiz mode's
// question set. It is created on start and cleared on dismissal.
type Session struct {
	ID                string
	TopicID           string
	Mode              PracticeMode
	Questions         []Question
	TotalQuestions    int
	Index             int
	SelectedOption    string
	Revealed          bool
	AnswerCorrect     *bool
	Submitting        bool
	CorrectCount      int
	XPFromAnswers     int
	LastAwardedXP     int
	CompletionXP      int
	TotalXP           int
	Score             int
	ShowCongrats      bool
	CompletionPending bool // listening: last answer done, completion not yet shown
	QuestionsVisible  bool // listening: questions hidden until revealed
	Loading           bool
	Err               string // user-facing message, empty when fine
	Status            SessionStatus
	StartedAt         time.Time
	UpdatedAt         time.Time
}

// Current returns the question at the session index, or nil.
func (s *Session) Current() *Question {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Index]
}

// Clone returns a copy safe to hand to callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = append([]Question(nil), s.Questions...)
	if s.AnswerCorrect != nil {
		v := *s.AnswerCorrect
		c.AnswerCorrect = &v
	}
	return &c
}

// SessionStatus tracks the lifecycle of a practice session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionCompleted
	SessionDismissed
)

// String returns a human-readable session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionCompleted:
		return "completed"
	case SessionDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// SessionKey identifies the single session slot for a topic and mode.
func SessionKey(topicID string, mode PracticeMode) string {
	return topicID + "/" + mode.String()
}
