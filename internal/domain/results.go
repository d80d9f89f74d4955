package domain

import "time"

// PracticeStart is the backend response to starting a quiz session.
type PracticeStart struct {
	SessionID      string
	Questions      []Question
	TotalQuestions int
}

// AnswerResult is the backend verdict for a submitted quiz answer.
// NextIndex is nil when the backend leaves advancing to the client.
type AnswerResult struct {
	Correct    bool
	XPAwarded  int
	TotalScore int
	NextIndex  *int
	Completed  bool
}

// CompletionResult aggregates a finished quiz session.
type CompletionResult struct {
	TotalScore     int
	TotalQuestions int
	XPAwarded      int
	CorrectCount   int
}

// TopicCompletion is returned when a whole topic is marked complete.
type TopicCompletion struct {
	Success          bool
	Message          string
	CompletedTopicID string
	UnlockedTopicID  string
}

// PhraseResult is the evaluation of a pronunciation recording.
type PhraseResult struct {
	Success         bool
	Accuracy        float64
	Transcription   string
	Feedback        string
	NextPhraseIndex *int
	TopicCompleted  bool
	XPAwarded       int
	RecordingID     string
	AudioURL        string
}

// PhraseRecording is a server-side record of a past phrase submission.
type PhraseRecording struct {
	ID            string
	PhraseIndex   int
	AudioURL      string
	Transcription string
	Accuracy      *float64
	Feedback      string
	CreatedAt     string
}

// TurnResult is the evaluation of a conversation-turn recording.
type TurnResult struct {
	Success        bool
	Accuracy       float64
	Transcription  string
	Feedback       string
	NextTurnIndex  *int
	TopicCompleted bool
	XPAwarded      int
}

// FluencySubmission is the journey endpoint's answer to a fluency recording.
type FluencySubmission struct {
	SessionID     string
	Transcription string
	Feedback      string
	Suggestions   []string
}

// FluencyEvaluation is the practice pipeline's analysis of a recording.
type FluencyEvaluation struct {
	SessionID         string
	Transcript        string
	Feedback          string
	OverallScore      float64
	Pauses            []float64
	StutterCount      int
	Mispronunciations []string
}

// PracticePrompt is a backend speaking prompt. Fluency recordings are
// submitted against one.
type PracticePrompt struct {
	ID             string
	Text           string
	Category       string
	Hints          []string
	TargetDuration int // seconds
}

// PromptScoreResult is returned after recording a fluency prompt score.
type PromptScoreResult struct {
	Success      bool
	PromptScores []int
	TotalScore   int
	Completed    bool
}

// TTSResult points at synthesized speech produced by the backend.
type TTSResult struct {
	AudioURL   string
	SampleRate int
	VoiceName  string
}

// TopicsPage is the full topic listing with the journey profile.
type TopicsPage struct {
	Topics  []Topic
	Profile UserProfile
}

// Attempt-history records cached locally as JSON.

// FluencyAttempt is one stored fluency recording and its analysis.
type FluencyAttempt struct {
	SessionID         string    `json:"sessionId"`
	AudioPath         string    `json:"audioPath"`
	Transcript        string    `json:"transcript"`
	Feedback          string    `json:"feedback"`
	OverallScore      int       `json:"overallScore"`
	CreatedAt         time.Time `json:"-"`
	Pauses            []float64 `json:"pauses"`
	StutterCount      int       `json:"stutterCount"`
	Mispronunciations []string  `json:"mispronunciations"`
	UserID            string    `json:"userId"`
}

// PhraseTranscript is a locally cached pronunciation attempt.
type PhraseTranscript struct {
	Index     int     `json:"index"`
	Text      string  `json:"text"`
	AudioPath string  `json:"audioPath"`
	Accuracy  float64 `json:"accuracy"`
	Feedback  string  `json:"feedback"`
	Timestamp int64   `json:"timestamp"` // unix millis
}
