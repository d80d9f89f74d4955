package api

import "github.com/hammamikhairi/voicevibe/internal/domain"

// Wire types mirror the backend's camelCase JSON. Mapping into domain
// types happens here so the rest of the client never sees them.

type topicsResponse struct {
	Topics      []topicDTO     `json:"topics"`
	UserProfile userProfileDTO `json:"userProfile"`
}

type userProfileDTO struct {
	FirstVisit            bool    `json:"firstVisit"`
	LastVisitedTopicID    *string `json:"lastVisitedTopicId"`
	LastVisitedTopicTitle *string `json:"lastVisitedTopicTitle"`
}

type turnDTO struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type phraseProgressDTO struct {
	CurrentPhraseIndex    int   `json:"currentPhraseIndex"`
	CompletedPhrases      []int `json:"completedPhrases"`
	TotalPhrases          int   `json:"totalPhrases"`
	IsAllPhrasesCompleted bool  `json:"isAllPhrasesCompleted"`
}

type fluencyProgressDTO struct {
	PromptsCount    int   `json:"promptsCount"`
	PromptScores    []int `json:"promptScores"`
	TotalScore      int   `json:"totalScore"`
	NextPromptIndex *int  `json:"nextPromptIndex"`
	Completed       bool  `json:"completed"`
}

type practiceScoresDTO struct {
	Pronunciation    int     `json:"pronunciation"`
	Fluency          int     `json:"fluency"`
	Vocabulary       int     `json:"vocabulary"`
	Listening        int     `json:"listening"`
	Average          float64 `json:"average"`
	MeetsRequirement bool    `json:"meetsRequirement"`
	MaxPronunciation int     `json:"maxPronunciation"`
	MaxFluency       int     `json:"maxFluency"`
	MaxVocabulary    int     `json:"maxVocabulary"`
	MaxListening     int     `json:"maxListening"`
}

type topicDTO struct {
	ID                    string              `json:"id"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	Material              []string            `json:"material"`
	Vocabulary            []string            `json:"vocabulary"`
	Conversation          []turnDTO           `json:"conversation"`
	FluencyPrompts        []string            `json:"fluencyPracticePrompts"`
	PhraseProgress        *phraseProgressDTO  `json:"phraseProgress"`
	FluencyProgress       *fluencyProgressDTO `json:"fluencyProgress"`
	PracticeScores        *practiceScoresDTO  `json:"practiceScores"`
	ConversationScore     *int                `json:"conversationScore"`
	ConversationCompleted bool                `json:"conversationCompleted"`
	Unlocked              bool                `json:"unlocked"`
	Completed             bool                `json:"completed"`
}

func (d topicDTO) toDomain() domain.Topic {
	t := domain.Topic{
		ID:                    d.ID,
		Title:                 d.Title,
		Description:           d.Description,
		Material:              d.Material,
		Vocabulary:            d.Vocabulary,
		FluencyPrompts:        d.FluencyPrompts,
		ConversationScore:     d.ConversationScore,
		ConversationCompleted: d.ConversationCompleted,
		Unlocked:              d.Unlocked,
		Completed:             d.Completed,
	}
	for _, turn := range d.Conversation {
		t.Conversation = append(t.Conversation, domain.ConversationTurn{Speaker: turn.Speaker, Text: turn.Text})
	}
	if p := d.PhraseProgress; p != nil {
		t.PhraseProgress = &domain.PhraseProgress{
			CurrentPhraseIndex: p.CurrentPhraseIndex,
			CompletedPhrases:   p.CompletedPhrases,
			TotalPhrases:       p.TotalPhrases,
			AllCompleted:       p.IsAllPhrasesCompleted,
		}
	}
	if f := d.FluencyProgress; f != nil {
		t.FluencyProgress = &domain.FluencyProgress{
			PromptsCount:    f.PromptsCount,
			PromptScores:    f.PromptScores,
			TotalScore:      f.TotalScore,
			NextPromptIndex: f.NextPromptIndex,
			Completed:       f.Completed,
		}
	}
	if s := d.PracticeScores; s != nil {
		ps := domain.PracticeScores(*s)
		t.PracticeScores = &ps
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type lastVisitedRequest struct {
	LastVisitedTopicID string `json:"lastVisitedTopicId"`
}

type completeTopicResponse struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	CompletedTopicID string  `json:"completedTopicId"`
	UnlockedTopicID  *string `json:"unlockedTopicId"`
}

type phraseResultDTO struct {
	Success         bool    `json:"success"`
	Accuracy        float64 `json:"accuracy"`
	Transcription   string  `json:"transcription"`
	Feedback        string  `json:"feedback"`
	NextPhraseIndex *int    `json:"nextPhraseIndex"`
	TopicCompleted  bool    `json:"topicCompleted"`
	XPAwarded       int     `json:"xpAwarded"`
	RecordingID     *string `json:"recordingId"`
	AudioURL        *string `json:"audioUrl"`
}

type recordingDTO struct {
	ID            string   `json:"id"`
	PhraseIndex   int      `json:"phraseIndex"`
	AudioURL      string   `json:"audioUrl"`
	Transcription string   `json:"transcription"`
	Accuracy      *float64 `json:"accuracy"`
	Feedback      string   `json:"feedback"`
	CreatedAt     string   `json:"createdAt"`
}

type recordingsResponse struct {
	Recordings []recordingDTO `json:"recordings"`
}

type turnResultDTO struct {
	Success        bool    `json:"success"`
	Accuracy       float64 `json:"accuracy"`
	Transcription  string  `json:"transcription"`
	Feedback       string  `json:"feedback"`
	NextTurnIndex  *int    `json:"nextTurnIndex"`
	TopicCompleted bool    `json:"topicCompleted"`
	XPAwarded      int     `json:"xpAwarded"`
}

type fluencySubmitDTO struct {
	SessionID     string   `json:"sessionId"`
	Transcription string   `json:"transcription"`
	Feedback      string   `json:"feedback"`
	Suggestions   []string `json:"suggestions"`
}

type promptScoreRequest struct {
	PromptIndex int    `json:"promptIndex"`
	Score       int    `json:"score"`
	SessionID   string `json:"sessionId,omitempty"`
}

type promptScoreDTO struct {
	Success      bool  `json:"success"`
	PromptScores []int `json:"promptScores"`
	TotalScore   int   `json:"totalScore"`
	Completed    bool  `json:"completed"`
}

type ttsRequest struct {
	Text      string `json:"text"`
	VoiceName string `json:"voiceName,omitempty"`
}

type ttsResponse struct {
	AudioURL   string  `json:"audioUrl"`
	SampleRate int     `json:"sampleRate"`
	VoiceName  *string `json:"voiceName"`
}

// Quiz modes.

type questionDTO struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type practiceStartDTO struct {
	SessionID      string        `json:"sessionId"`
	Questions      []questionDTO `json:"questions"`
	TotalQuestions int           `json:"totalQuestions"`
}

type answerRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Selected   string `json:"selected"`
}

type answerDTO struct {
	Correct    bool `json:"correct"`
	XPAwarded  int  `json:"xpAwarded"`
	TotalScore int  `json:"totalScore"`
	NextIndex  *int `json:"nextIndex"`
	Completed  bool `json:"completed"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type completionDTO struct {
	TotalScore     int `json:"totalScore"`
	TotalQuestions int `json:"totalQuestions"`
	XPAwarded      int `json:"xpAwarded"`
	CorrectCount   int `json:"correctCount"`
}

// Practice pipeline.

type promptDTO struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Category       string   `json:"category"`
	Hints          []string `json:"hints"`
	TargetDuration int      `json:"targetDuration"`
}

func (p promptDTO) toDomain() domain.PracticePrompt {
	return domain.PracticePrompt{
		ID:             p.ID,
		Text:           p.Text,
		Category:       p.Category,
		Hints:          p.Hints,
		TargetDuration: p.TargetDuration,
	}
}

type submissionDTO struct {
	SessionID string  `json:"sessionId"`
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
}

type sessionDTO struct {
	ID            string  `json:"id"`
	Transcription *string `json:"transcription"`
}

type phoneticErrorDTO struct {
	Word string `json:"word"`
}

// evaluationDTO keeps Pauses nil when the server omits it, so callers can
// tell "no pauses" from "not analysed".
type evaluationDTO struct {
	SessionID      string             `json:"sessionId"`
	OverallScore   float64            `json:"overallScore"`
	Feedback       string             `json:"feedback"`
	PhoneticErrors []phoneticErrorDTO `json:"phoneticErrors"`
	Pauses         []float64          `json:"pauses"`
	Stutters       *int               `json:"stutters"`
}

// Gamification.

type experienceRequest struct {
	Points int    `json:"points"`
	Source string `json:"source"`
}

type profileDTO struct {
	UserName        string `json:"username"`
	UserEmail       string `json:"user_email"`
	CurrentLevel    *int   `json:"current_level"`
	ExperiencePoint *int   `json:"experience_points"`
	StreakDays      *int   `json:"streak_days"`
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
