package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentListTopics
	IntentSelectTopic
	IntentStartQuiz    // payload: mode name
	IntentAnswer       // payload: option number or text
	IntentReveal       // listening: show the questions
	IntentRestart      // restart the current quiz
	IntentDismiss      // dismiss results / congratulations
	IntentFluency      // show the fluency prompt
	IntentRecord       // start a fluency recording
	IntentPauseRecord  // pause the fluency recording
	IntentResumeRecord // resume the fluency recording
	IntentStop         // stop recording and playback
	IntentPlay         // payload: turn number or "all"
	IntentRole         // payload: A or B
	IntentSubmitTurn   // payload: "<turn> <wav>"
	IntentSubmitPhrase // payload: wav path
	IntentRehearse     // payload: A or B
	IntentSay          // payload: transcript for the rehearsal
	IntentListen       // record a rehearsal turn through the microphone
	IntentAskQuestion  // free-form question for the tutor
	IntentExplain      // payload: turn number
	IntentProfile
	IntentHistory
	IntentExport   // payload: file path
	IntentReview   // payload: phrase number, prev, next, done, or empty
	IntentComplete // complete the selected topic
	IntentRepeat   // say the last coach line again
	IntentStatus
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	if name, ok := intentLabels[i]; ok {
		return name
	}
	return "unknown"
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string
}

var intentLabels = map[IntentType]string{
	IntentListTopics:   "list_topics",
	IntentSelectTopic:  "select_topic",
	IntentStartQuiz:    "start_quiz",
	IntentAnswer:       "answer",
	IntentReveal:       "reveal",
	IntentRestart:      "restart",
	IntentDismiss:      "dismiss",
	IntentFluency:      "fluency",
	IntentRecord:       "record",
	IntentPauseRecord:  "pause_record",
	IntentResumeRecord: "resume_record",
	IntentStop:         "stop",
	IntentPlay:         "play",
	IntentRole:         "role",
	IntentSubmitTurn:   "submit_turn",
	IntentSubmitPhrase: "submit_phrase",
	IntentRehearse:     "rehearse",
	IntentSay:          "say",
	IntentListen:       "listen",
	IntentAskQuestion:  "ask_question",
	IntentExplain:      "explain",
	IntentProfile:      "profile",
	IntentHistory:      "history",
	IntentExport:       "export",
	IntentReview:       "review",
	IntentComplete:     "complete",
	IntentRepeat:       "repeat",
	IntentStatus:       "status",
	IntentHelp:         "help",
	IntentQuit:         "quit",
}

// IntentFromString converts a snake_case intent name to an IntentType.
// Returns IntentUnknown for unrecognized names.
func IntentFromString(name string) IntentType {
	for t, label := range intentLabels {
		if label == name {
			return t
		}
	}
	return IntentUnknown
}
