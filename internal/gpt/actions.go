package gpt

// ActionType names a UI action the tutor can ask the client to perform.
type ActionType string

const (
	ActionAwardXP                   ActionType = "award_xp"
	ActionShowPracticeMenu          ActionType = "show_practice_menu"
	ActionShowConversationExample   ActionType = "show_conversation_example"
	ActionStartPracticeConversation ActionType = "start_practice_conversation"
	ActionPlayPracticeTurn          ActionType = "play_practice_turn"
	ActionPromptUserRecording       ActionType = "prompt_user_recording"
	ActionShowPracticeHint          ActionType = "show_practice_hint"
	ActionRevealCorrectAnswer       ActionType = "reveal_correct_answer"
)

// Reply is the structured JSON the tutor returns for a chat turn: text
// to show and speak, and the actions to run afterwards.
type Reply struct {
	Reply   string   `json:"reply"`
	Actions []Action `json:"actions"`
}

// Action is one requested UI action. Only award_xp carries arguments.
type Action struct {
	Type ActionType `json:"type"`

	// award_xp
	Points  int    `json:"points,omitempty"`
	TopicID string `json:"topicId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// GeneratedQuestion is a multiple-choice question produced by the model.
type GeneratedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}
