// Package domain defines the core types and interfaces for the speaking
// journey client. All other packages depend on domain; domain depends on nothing.
package domain

import "strings"

// Speaker tags used in conversation examples.
const (
	SpeakerA = "A"
	SpeakerB = "B"
)

// Topic is a speaking-practice unit with teaching material and a set of
// practice modes. Topics are owned by the backend and read-mostly here.
type Topic struct {
	ID                    string
	Title                 string
	Description           string
	Material              []string // phrases practiced in pronunciation mode
	Vocabulary            []string
	Conversation          []ConversationTurn
	FluencyPrompts        []string
	PhraseProgress        *PhraseProgress
	FluencyProgress       *FluencyProgress
	PracticeScores        *PracticeScores
	ConversationScore     *int
	ConversationCompleted bool
	Unlocked              bool
	Completed             bool
}

// ConversationTurn is one line of a topic's example dialogue.
type ConversationTurn struct {
	Speaker string
	Text    string
}

// PhraseProgress tracks pronunciation progress through a topic's material.
type PhraseProgress struct {
	CurrentPhraseIndex int
	CompletedPhrases   []int
	TotalPhrases       int
	AllCompleted       bool
}

// FluencyProgress tracks fluency prompt scores for a topic.
type FluencyProgress struct {
	PromptsCount    int
	PromptScores    []int
	TotalScore      int
	NextPromptIndex *int
	Completed       bool
}

// PracticeScores aggregates the per-mode scores the backend computes.
type PracticeScores struct {
	Pronunciation    int
	Fluency          int
	Vocabulary       int
	Listening        int
	Average          float64
	MeetsRequirement bool
	MaxPronunciation int
	MaxFluency       int
	MaxVocabulary    int
	MaxListening     int
}

// UserProfile is the journey-level profile returned with the topic list.
type UserProfile struct {
	FirstVisit            bool
	LastVisitedTopicID    string
	LastVisitedTopicTitle string
}

// GamificationProfile is the user's level, XP, and day streak.
type GamificationProfile struct {
	Level      int
	XP         int
	StreakDays int
	UserEmail  string
	UserName   string
}

// TotalPhrases returns the phrase count from progress, or the material size.
func (t *Topic) TotalPhrases() int {
	if t.PhraseProgress != nil && t.PhraseProgress.TotalPhrases > 0 {
		return t.PhraseProgress.TotalPhrases
	}
	return len(t.Material)
}

// HasTurnsAfter reports whether any turn after index belongs to role.
func (t *Topic) HasTurnsAfter(index int, role string) bool {
	for i := index + 1; i < len(t.Conversation); i++ {
		if strings.EqualFold(t.Conversation[i].Speaker, role) {
			return true
		}
	}
	return false
}

// NextTurnFor returns the index of the first turn after index spoken by
// role, or -1.
func (t *Topic) NextTurnFor(index int, role string) int {
	for i := index + 1; i < len(t.Conversation); i++ {
		if strings.EqualFold(t.Conversation[i].Speaker, role) {
			return i
		}
	}
	return -1
}

// OtherSpeaker returns the conversation partner of role.
func OtherSpeaker(role string) string {
	if strings.EqualFold(role, SpeakerA) {
		return SpeakerB
	}
	return SpeakerA
}
