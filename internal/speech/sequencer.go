package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// SequencerOption configures the Sequencer.
type SequencerOption func(*Sequencer)

// WithQueueSize sets the internal notification channel capacity.
func WithQueueSize(n int) SequencerOption {
	return func(s *Sequencer) {
		s.notify = make(chan struct{}, n)
	}
}

// WithChunkSize sets the approximate max character count per TTS chunk.
// Text longer than this is split at sentence boundaries and synthesized
// in parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) SequencerOption {
	return func(s *Sequencer) {
		s.chunkSize = n
	}
}

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) SequencerOption {
	return func(s *Sequencer) {
		s.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
func WithDiskWrite(enabled bool) SequencerOption {
	return func(s *Sequencer) {
		s.diskWrite = enabled
	}
}

// WithClipDir sets the directory of pre-recorded conversation clips.
func WithClipDir(dir string) SequencerOption {
	return func(s *Sequencer) {
		s.clipDir = dir
	}
}

// WithSpeakerVoices sets the TTS voices for conversation speakers A and B.
func WithSpeakerVoices(a, b string) SequencerOption {
	return func(s *Sequencer) {
		s.voiceA = a
		s.voiceB = b
	}
}

// WithCoachVoice sets the voice used for coach lines.
func WithCoachVoice(v string) SequencerOption {
	return func(s *Sequencer) {
		s.coachVoice = v
	}
}

// TurnCallbacks observe turn playback. Any field may be nil.
type TurnCallbacks struct {
	OnStart func(index int)
	OnDone  func(index int)
	OnError func(index int, err error)
}

// WithTurnCallbacks registers playback observers.
func WithTurnCallbacks(cb TurnCallbacks) SequencerOption {
	return func(s *Sequencer) {
		s.callbacks = cb
	}
}

// Sequencer is the single audio output pipeline. It plays conversation
// turns one at a time (clip if present, else TTS) and speaks queued coach
// lines. Only one thing plays at a time.
//
// Stop cancels whatever run is in progress. Every run holds the
// generation it started under and checks it before each step, so nothing
// from a cancelled run plays after Stop returns.
type Sequencer struct {
	tts    domain.Synthesizer
	player domain.AudioPlayer
	log    *logger.Logger
	cache  *AudioCache

	callbacks  TurnCallbacks
	clipDir    string
	voiceA     string
	voiceB     string
	coachVoice string
	chunkSize  int
	cacheDir   string
	diskWrite  bool

	playMu sync.Mutex // held for the duration of one clip

	mu         sync.Mutex
	generation uint64
	queue      []SpeechRequest
	notify     chan struct{}
	speaking   bool
	lastSpoken string
}

// NewSequencer creates the playback pipeline.
func NewSequencer(tts domain.Synthesizer, player domain.AudioPlayer, log *logger.Logger, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		tts:        tts,
		player:     player,
		log:        log,
		notify:     make(chan struct{}, 32),
		chunkSize:  200, // roughly 2 sentences
		diskWrite:  true,
		voiceA:     DefaultVoiceA,
		voiceB:     DefaultVoiceB,
		coachVoice: DefaultVoice,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewAudioCache(s.cacheDir, s.diskWrite, log)
	return s
}

// VoiceFor returns the TTS voice of a conversation speaker.
func (s *Sequencer) VoiceFor(speaker string) string {
	if strings.EqualFold(speaker, domain.SpeakerB) {
		return s.voiceB
	}
	return s.voiceA
}

// begin starts a new run and returns its generation.
func (s *Sequencer) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// cancelled reports whether the run started under gen has been stopped.
func (s *Sequencer) cancelled(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != gen
}

// Stop cancels the current run, drops queued coach lines, and halts the
// player mid-clip.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.generation++
	s.queue = s.queue[:0]
	s.mu.Unlock()

	s.player.Stop()
	s.log.Debug("sequencer: stopped")
}

// PlayTurn plays one conversation turn. The local clip
// <clipDir>/<slug>/turn_<n>.wav is preferred; otherwise the text is
// synthesized in voice.
func (s *Sequencer) PlayTurn(ctx context.Context, topicKey string, index int, text, voice string) error {
	gen := s.begin()
	return s.playTurn(ctx, gen, topicKey, index, text, voice)
}

// PlayAll plays turns in order, each one after the previous finished.
// onTurn is called with the index before each turn starts. It returns
// nil when cancelled by Stop.
func (s *Sequencer) PlayAll(ctx context.Context, topicKey string, turns []domain.ConversationTurn, onTurn func(index int)) error {
	gen := s.begin()

	var pending []SpeechRequest
	for i, t := range turns {
		if _, ok := loadClip(s.clipDir, topicKey, i); !ok {
			pending = append(pending, SpeechRequest{Text: t.Text, Voice: s.VoiceFor(t.Speaker)})
		}
	}
	s.prefetch(ctx, pending)

	for i, t := range turns {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.cancelled(gen) {
			s.log.Debug("sequencer: play-all cancelled before turn %d", i+1)
			return nil
		}
		if onTurn != nil {
			onTurn(i)
		}
		if err := s.playTurn(ctx, gen, topicKey, i, t.Text, s.VoiceFor(t.Speaker)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) playTurn(ctx context.Context, gen uint64, topicKey string, index int, text, voice string) error {
	if s.cancelled(gen) {
		return nil
	}
	if s.callbacks.OnStart != nil {
		s.callbacks.OnStart(index)
	}

	var err error
	if clip, ok := loadClip(s.clipDir, topicKey, index); ok {
		s.log.Debug("sequencer: turn %d from clip", index+1)
		err = s.playOne(gen, clip)
	} else {
		err = s.speakText(ctx, gen, text, voice)
	}

	if err != nil {
		err = fmt.Errorf("playing turn %d: %w", index+1, err)
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(index, err)
		}
		return err
	}
	if s.callbacks.OnDone != nil && !s.cancelled(gen) {
		s.callbacks.OnDone(index)
	}
	return nil
}

// playOne plays a single WAV unless gen was cancelled while waiting for
// the player.
func (s *Sequencer) playOne(gen uint64, wav []byte) error {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	if s.cancelled(gen) {
		return nil
	}
	return s.player.Play(wav)
}

// speakText synthesizes text (chunked and in parallel when long) and
// plays the chunks in order.
func (s *Sequencer) speakText(ctx context.Context, gen uint64, text, voice string) error {
	chunks := s.splitChunks(text)
	if len(chunks) <= 1 {
		audio, err := s.synthesizeWithCache(ctx, text, voice)
		if err != nil {
			return err
		}
		return s.playOne(gen, audio)
	}

	s.log.Debug("sequencer: split into %d chunks for parallel synthesis", len(chunks))

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))

	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := s.synthesizeWithCache(ctx, text, voice)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	audioSlots := make([][]byte, len(chunks))
	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil {
			s.log.Error("sequencer: chunk %d synthesis failed: %v", r.idx, r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		audioSlots[r.idx] = r.audio
	}

	played := 0
	for i, audio := range audioSlots {
		if audio == nil {
			s.log.Debug("sequencer: skipping chunk %d (synthesis failed)", i)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.cancelled(gen) {
			s.log.Debug("sequencer: aborting chunk playback (stopped)")
			return nil
		}
		if err := s.playOne(gen, audio); err != nil {
			return err
		}
		played++
	}
	if played == 0 && firstErr != nil {
		return firstErr
	}
	return nil
}

// synthesizeWithCache checks the cache first, otherwise calls the TTS
// backend and stores the result. Thread-safe.
func (s *Sequencer) synthesizeWithCache(ctx context.Context, text, voice string) ([]byte, error) {
	if audio, ok := s.cache.Get(voice, text); ok {
		return audio, nil
	}
	audio, err := s.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	s.cache.Put(voice, text, audio)
	return audio, nil
}

// ── Coach lines ──────────────────────────────────────────────────

// Say queues a coach line at the given priority. Non-blocking. When
// something at PriorityNormal or above is queued, stale PriorityLow
// items are flushed.
func (s *Sequencer) Say(text string, priority Priority) {
	s.mu.Lock()
	if priority >= PriorityNormal {
		s.flushLowLocked()
	}
	s.queue = append(s.queue, SpeechRequest{
		Text:     text,
		Voice:    s.coachVoice,
		Priority: priority,
		QueuedAt: time.Now(),
	})
	qLen := len(s.queue)
	s.mu.Unlock()

	s.log.Debug("sequencer: queued (priority=%d, queue_len=%d): %s", priority, qLen, truncate(text, 60))

	select {
	case s.notify <- struct{}{}:
	default: // already signaled
	}
}

// flushLowLocked removes all PriorityLow items. Must be called with s.mu held.
func (s *Sequencer) flushLowLocked() {
	n := 0
	for _, item := range s.queue {
		if item.Priority > PriorityLow {
			s.queue[n] = item
			n++
		}
	}
	s.queue = s.queue[:n]
}

// IsSpeaking reports whether a queued coach line is being spoken.
func (s *Sequencer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// QueueLen returns the number of pending coach lines.
func (s *Sequencer) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// LastSpoken returns the most recent coach line.
func (s *Sequencer) LastSpoken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSpoken
}

// Cache returns the audio cache. Useful for stats/logging.
func (s *Sequencer) Cache() *AudioCache { return s.cache }

// Start begins the coach-line goroutine. Non-blocking.
func (s *Sequencer) Start(ctx context.Context) {
	go s.processLoop(ctx)
	s.log.Info("sequencer started")
}

func (s *Sequencer) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sequencer stopped")
			return
		case <-s.notify:
			s.drain(ctx)
		}
	}
}

// drain speaks all queued lines, highest priority first.
func (s *Sequencer) drain(ctx context.Context) {
	for ctx.Err() == nil {
		item, ok := s.dequeue()
		if !ok {
			return
		}

		s.mu.Lock()
		s.speaking = true
		gen := s.generation
		s.mu.Unlock()

		s.log.Debug("sequencer: speaking (priority=%d, waited=%s): %s",
			item.Priority, time.Since(item.QueuedAt).Round(time.Millisecond), truncate(item.Text, 60))
		if err := s.speakText(ctx, gen, item.Text, item.Voice); err != nil {
			s.log.Error("sequencer: coach line failed: %v", err)
		}

		s.mu.Lock()
		s.speaking = false
		s.lastSpoken = item.Text
		s.mu.Unlock()
	}
}

func (s *Sequencer) dequeue() (SpeechRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return SpeechRequest{}, false
	}

	bestIdx := 0
	for i, item := range s.queue {
		if item.Priority > s.queue[bestIdx].Priority {
			bestIdx = i
		}
	}

	item := s.queue[bestIdx]
	s.queue = append(s.queue[:bestIdx], s.queue[bestIdx+1:]...)
	return item, true
}

// prefetch pre-synthesizes requests in the background so a play-all run
// doesn't stall between turns.
func (s *Sequencer) prefetch(ctx context.Context, reqs []SpeechRequest) {
	for _, r := range reqs {
		if r.Text == "" {
			continue
		}
		for _, chunk := range s.splitChunks(r.Text) {
			if s.cache.Has(r.Voice, chunk) {
				continue
			}
			go func(text, voice string) {
				audio, err := s.tts.Synthesize(ctx, text, voice)
				if err != nil {
					s.log.Debug("prefetch: synthesis failed: %v", err)
					return
				}
				s.cache.Put(voice, text, audio)
			}(chunk, r.Voice)
		}
	}
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// chunkSize characters.
func (s *Sequencer) splitChunks(text string) []string {
	if s.chunkSize <= 0 || len(text) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence) > s.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text at sentence boundaries (. ! ?) keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
