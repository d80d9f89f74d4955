package speech

import "time"

// Default voices for TTS. Speaker A and B of a conversation get distinct
// voices so turns are easy to tell apart.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const (
	DefaultVoice  = "en-US-AvaNeural"
	DefaultVoiceA = "en-US-AndrewNeural"
	DefaultVoiceB = "en-US-AvaNeural"
)

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// CaptureSampleRate is the microphone rate. 16 kHz mono is what the
// backend and whisper expect.
const CaptureSampleRate = 16000

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)

// Priority levels for coach lines. Higher value = speaks first.
type Priority int

const (
	PriorityLow      Priority = iota // reminders, idle chatter
	PriorityNormal                   // feedback, hints
	PriorityHigh                     // results
	PriorityCritical                 // errors
)

// SpeechRequest is a queued coach line waiting to be spoken.
type SpeechRequest struct {
	Text     string
	Voice    string
	Priority Priority
	QueuedAt time.Time
}
