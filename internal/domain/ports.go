package domain

import (
	"context"
	"time"
)

// JourneyRepository is the backend surface for topics and the
// recording-based practice modes.
type JourneyRepository interface {
	Topics(ctx context.Context) (*TopicsPage, error)
	UpdateLastVisitedTopic(ctx context.Context, topicID string) error
	CompleteTopic(ctx context.Context, topicID string) (*TopicCompletion, error)
	SubmitPhraseRecording(ctx context.Context, topicID string, phraseIndex int, audioPath string) (*PhraseResult, error)
	PhraseRecordings(ctx context.Context, topicID string) ([]PhraseRecording, error)
	SubmitConversationTurn(ctx context.Context, topicID string, turnIndex int, audioPath, role string) (*TurnResult, error)
	SubmitFluencyRecording(ctx context.Context, topicID, audioPath string, duration time.Duration) (*FluencySubmission, error)
	SubmitFluencyPromptScore(ctx context.Context, topicID string, promptIndex, score int, sessionID string) (*PromptScoreResult, error)
	GenerateTTS(ctx context.Context, text, voice string) (*TTSResult, error)
}

// PracticeRepository starts, answers, and completes quiz sessions, and
// runs the speaking-practice evaluation pipeline.
type PracticeRepository interface {
	StartPractice(ctx context.Context, topicID string, mode PracticeMode) (*PracticeStart, error)
	SubmitAnswer(ctx context.Context, topicID string, mode PracticeMode, sessionID, questionID, selected string) (*AnswerResult, error)
	CompletePractice(ctx context.Context, topicID string, mode PracticeMode, sessionID string) (*CompletionResult, error)
	PromptsByCategory(ctx context.Context, category string) ([]PracticePrompt, error)
	RandomPrompt(ctx context.Context) (*PracticePrompt, error)
	SubmitRecording(ctx context.Context, promptID, audioPath string) (string, error)
	Evaluation(ctx context.Context, sessionID string) (*FluencyEvaluation, error)
}

// GamificationRepository records streaks and experience points.
type GamificationRepository interface {
	UpdateStreak(ctx context.Context) (int, error)
	AddExperience(ctx context.Context, points int, source string) error
	Profile(ctx context.Context) (*GamificationProfile, error)
}

// SessionStore holds quiz sessions, at most one per topic and mode.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, topicID string, mode PracticeMode) (*Session, error)
	Delete(ctx context.Context, topicID string, mode PracticeMode) error
	ListActive(ctx context.Context) ([]*Session, error)
}

// AttemptStore is the local flat-file cache of attempt history.
type AttemptStore interface {
	AppendFluency(ctx context.Context, topicID string, attempt FluencyAttempt) error
	FluencyAttempts(ctx context.Context, userID, topicID string) ([]FluencyAttempt, error)
	SavePhrase(ctx context.Context, userKey, topicID string, entry PhraseTranscript) error
	Phrases(ctx context.Context, userKey, topicID string) ([]PhraseTranscript, error)
}

// ActivityLedger is the local record of earned XP and practice days.
type ActivityLedger interface {
	AddXP(ctx context.Context, userKey, source string, points int) error
	MarkActive(ctx context.Context, userKey string, day time.Time) error
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout or speak through text-to-speech.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// AudioPlayer plays WAV audio. Play blocks until playback ends or Stop
// is called.
type AudioPlayer interface {
	Play(wav []byte) error
	Stop()
}

// Transcriber records from the microphone and returns what was said.
type Transcriber interface {
	Listen(ctx context.Context) (string, error)
}
