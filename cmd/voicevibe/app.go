package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/display"
	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/engine"
	"github.com/hammamikhairi/voicevibe/internal/fluency"
	"github.com/hammamikhairi/voicevibe/internal/gpt"
	"github.com/hammamikhairi/voicevibe/internal/journey"
	"github.com/hammamikhairi/voicevibe/internal/logger"
	"github.com/hammamikhairi/voicevibe/internal/report"
	"github.com/hammamikhairi/voicevibe/internal/speech"
	"github.com/hammamikhairi/voicevibe/internal/storage"
	"github.com/hammamikhairi/voicevibe/internal/timer"
)

type cliApp struct {
	journey      *journey.Journey
	gamification domain.GamificationRepository
	engine       *engine.Engine
	flow         *fluency.Flow
	recorder     *fluency.Recorder
	take         *fluency.Take
	phrases      *journey.PhraseFlow
	turns        *journey.ConversationFlow
	rehearsal    *journey.Rehearsal
	parser       domain.IntentParser
	notifier     domain.Notifier
	seq          *speech.Sequencer
	ear          domain.Transcriber // nil when voice input is off
	tutor        *gpt.Tutor         // nil when the AI is off
	actions      gpt.ActionHandler
	history      *gpt.History
	ledger       *storage.Ledger // nil when the ledger could not be opened
	ui           *display.UI
	log          *logger.Logger
	recordDir    string
	audioOn      bool

	ctx context.Context

	mu       sync.Mutex
	mode     domain.PracticeMode
	hasMode  bool
	playing  string
	lastStep *journey.RehearsalStep
	verdict  string // session/index of the last printed quiz verdict
	onTake   func(ctx context.Context, path string)
}

// say prints a coach line and speaks it when audio is on.
func (a *cliApp) say(text string, priority speech.Priority) {
	a.ui.PrintChat(text)
	if a.audioOn {
		a.seq.Say(text, priority)
	}
}

func (a *cliApp) sayUrgent(text string) {
	a.ui.PrintUrgent(text)
	if a.audioOn {
		a.seq.Say(text, speech.PriorityCritical)
	}
}

func (a *cliApp) setMode(m domain.PracticeMode) {
	a.mu.Lock()
	a.mode, a.hasMode = m, true
	a.mu.Unlock()
}

func (a *cliApp) currentMode() (domain.PracticeMode, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode, a.hasMode
}

func (a *cliApp) clearMode() {
	a.mu.Lock()
	a.hasMode = false
	a.mu.Unlock()
}

// status feeds the display bar.
func (a *cliApp) status() display.Status {
	var s display.Status
	topic, _ := a.journey.Current()
	if topic != nil {
		s.Topic = topic.Title
	}
	if st := a.journey.Stats(); st != nil {
		s.Level, s.XP, s.Streak = st.Level, st.XP, st.StreakDays
	}

	a.mu.Lock()
	mode, hasMode, playing := a.mode, a.hasMode, a.playing
	a.mu.Unlock()
	s.Playing = playing

	if hasMode {
		s.Mode = mode.String()
		if mode.IsQuiz() && topic != nil {
			if sess, err := a.engine.Session(context.Background(), mode, topic.ID); err == nil && sess.TotalQuestions > 0 {
				s.Question = fmt.Sprintf("%d/%d", min(sess.Index+1, sess.TotalQuestions), sess.TotalQuestions)
			}
		}
	}

	if a.recorder != nil {
		switch a.recorder.State() {
		case fluency.StateRecording:
			s.Recording = true
		case fluency.StatePaused:
			s.Recording, s.Paused = true, true
		}
		s.Remaining = a.recorder.Remaining()
	}
	return s
}

func (a *cliApp) run(ctx context.Context) {
	a.ctx = ctx

	if err := a.journey.ReloadTopics(ctx); err != nil {
		a.ui.PrintHint(a.journey.Err())
		a.ui.PrintHint("Using the built-in topics.")
	}
	if _, err := a.journey.RefreshProfile(ctx); err != nil {
		a.log.Warn("%v", err)
	}

	profile := a.journey.Profile()
	if !profile.FirstVisit && profile.LastVisitedTopicTitle != "" {
		a.say(speech.LineWelcomeBack(profile.LastVisitedTopicTitle), speech.PriorityNormal)
	} else {
		a.say(speech.LineWelcome(), speech.PriorityNormal)
	}
	a.ui.Println("")
	a.showTopics()

	uiCh := a.ui.InputChan()
	for {
		var input string
		select {
		case <-ctx.Done():
			return
		case in, ok := <-uiCh:
			if !ok {
				return
			}
			input = strings.TrimSpace(in)
		}
		if input == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if a.handleIntent(ctx, intent) {
			return
		}
	}
}

// handleIntent dispatches one intent. It returns true when the app should exit.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	// New actions cut off whatever the coach is still saying.
	switch intent.Type {
	case domain.IntentSelectTopic, domain.IntentStartQuiz, domain.IntentAskQuestion,
		domain.IntentRehearse, domain.IntentQuit:
		a.seq.Stop()
	}

	switch intent.Type {
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentListTopics:
		a.showTopics()
	case domain.IntentSelectTopic:
		a.selectTopic(ctx, intent.Payload)
	case domain.IntentProfile:
		a.showProfile(ctx)
	case domain.IntentHistory:
		a.showHistory(ctx)
	case domain.IntentStartQuiz:
		a.startQuiz(ctx, intent.Payload)
	case domain.IntentAnswer:
		a.answer(ctx, intent.Payload)
	case domain.IntentReveal:
		a.reveal(ctx)
	case domain.IntentRestart:
		a.restart(ctx)
	case domain.IntentDismiss:
		a.dismiss(ctx)
	case domain.IntentFluency:
		a.startFluency(ctx)
	case domain.IntentRecord:
		a.record(ctx)
	case domain.IntentPauseRecord:
		a.pauseRecording()
	case domain.IntentResumeRecord:
		a.resumeRecording()
	case domain.IntentStop:
		a.stop(ctx)
	case domain.IntentPlay:
		a.play(ctx, intent.Payload)
	case domain.IntentRole:
		a.chooseRole(intent.Payload)
	case domain.IntentSubmitTurn:
		a.submitTurn(ctx, intent.Payload)
	case domain.IntentSubmitPhrase:
		a.submitPhrase(ctx, intent.Payload)
	case domain.IntentRehearse:
		a.rehearse(ctx, intent.Payload)
	case domain.IntentSay:
		a.sayLine(ctx, intent.Payload)
	case domain.IntentListen:
		a.listen(ctx)
	case domain.IntentAskQuestion:
		a.askTutor(ctx, intent.Payload)
	case domain.IntentExplain:
		a.explain(ctx, intent.Payload)
	case domain.IntentExport:
		a.export(ctx, intent.Payload)
	case domain.IntentReview:
		a.review(intent.Payload)
	case domain.IntentComplete:
		a.completeTopic(ctx)
	case domain.IntentRepeat:
		a.repeat()
	case domain.IntentStatus:
		a.showStatus(ctx)
	case domain.IntentQuit:
		a.quit()
		return true
	default:
		a.say(speech.LineUnknown(intent.Payload), speech.PriorityLow)
	}
	return false
}

// ── Topics ───────────────────────────────────────────────────────

func (a *cliApp) showTopics() {
	topics := a.journey.Topics()
	_, selected := a.journey.Current()
	a.ui.PrintHeader("Your speaking journey:")
	for i, t := range topics {
		marker := " "
		switch {
		case t.Completed:
			marker = "✓"
		case !t.Unlocked:
			marker = "🔒"
		}
		line := fmt.Sprintf("[%d] %s %s", i+1, marker, t.Title)
		if i == selected {
			line += "  ← current"
		}
		a.ui.PrintInstruction(line)
		if t.Description != "" {
			a.ui.PrintHint(t.Description)
		}
	}
	a.ui.PrintChat("Say select N to open a topic.")
}

func (a *cliApp) selectTopic(ctx context.Context, payload string) {
	var err error
	if n, convErr := strconv.Atoi(payload); convErr == nil {
		err = a.journey.SelectTopic(ctx, n-1)
	} else {
		err = domain.ErrNotFound
		q := strings.ToLower(payload)
		for _, t := range a.journey.Topics() {
			if t.ID == payload || strings.Contains(strings.ToLower(t.Title), q) {
				err = a.journey.SelectTopicByID(ctx, t.ID)
				break
			}
		}
	}

	switch {
	case errors.Is(err, domain.ErrTopicLocked):
		a.say(speech.LineTopicLocked(payload), speech.PriorityNormal)
		return
	case err != nil:
		a.say(speech.LineInvalidSelection(payload), speech.PriorityLow)
		return
	}

	a.resetTopicState()
	topic, _ := a.journey.Current()
	a.showTopic(topic)
	a.say(speech.LineTopicSelected(topic.Title, topic.TotalPhrases(), len(topic.Conversation)), speech.PriorityNormal)

	if _, err := a.phrases.LoadTranscripts(ctx); err != nil {
		a.log.Warn("loading transcripts: %v", err)
	}
	a.showPhraseTarget()
}

func (a *cliApp) resetTopicState() {
	a.clearMode()
	a.turns.Reset()
	a.rehearsal.Exit()
	a.phrases.ClearInspection()
	a.history.Reset()
	a.mu.Lock()
	a.lastStep = nil
	a.mu.Unlock()
}

func (a *cliApp) showTopic(t *domain.Topic) {
	a.ui.PrintHeader(fmt.Sprintf("=== %s ===", t.Title))
	if t.Description != "" {
		a.ui.PrintInstruction(t.Description)
	}
	if len(t.Vocabulary) > 0 {
		a.ui.PrintHint("Vocabulary: " + strings.Join(t.Vocabulary, ", "))
	}
	if s := t.PracticeScores; s != nil {
		a.ui.PrintHint(fmt.Sprintf("Scores: pronunciation %d, fluency %d, vocabulary %d, listening %d (avg %.0f)",
			s.Pronunciation, s.Fluency, s.Vocabulary, s.Listening, s.Average))
	}
	a.showModes()
}

func (a *cliApp) showModes() {
	a.ui.PrintHeader("Practice modes:")
	a.ui.PrintInstruction("phrase [wav]     pronunciation, one phrase at a time")
	a.ui.PrintInstruction("fluency          speak freely on the topic for 30 seconds")
	a.ui.PrintInstruction("grammar | vocab | listening   multiple-choice quizzes")
	a.ui.PrintInstruction("play all, role A|B, rehearse A|B   conversation")
}

func (a *cliApp) showConversation(t *domain.Topic) {
	a.ui.PrintHeader("Conversation:")
	for i, turn := range t.Conversation {
		a.ui.PrintInstruction(fmt.Sprintf("%d. %s: %s", i+1, turn.Speaker, turn.Text))
	}
}

func (a *cliApp) showProfile(ctx context.Context) {
	p, err := a.journey.RefreshProfile(ctx)
	if err != nil {
		a.log.Warn("%v", err)
		p = a.journey.Stats()
	}
	a.ui.PrintHeader("Profile")
	if p != nil {
		if p.UserName != "" {
			a.ui.PrintInstruction("Name:   " + p.UserName)
		}
		a.ui.PrintInstruction(fmt.Sprintf("Level:  %d", p.Level))
		a.ui.PrintInstruction(fmt.Sprintf("XP:     %d", p.XP))
		a.ui.PrintInstruction(fmt.Sprintf("Streak: %d days", p.StreakDays))
	} else {
		a.ui.PrintHint("Profile unavailable offline.")
	}

	if a.ledger != nil {
		key := a.journey.CurrentUserKey()
		total, err := a.ledger.TotalXP(ctx, key)
		if err != nil {
			a.log.Warn("ledger: %v", err)
			return
		}
		streak, _ := a.ledger.LocalStreak(ctx, key, time.Now())
		a.ui.PrintHint(fmt.Sprintf("On this device: %d XP, %d-day streak", total, streak))
		events, err := a.ledger.Events(ctx, key, 5)
		if err == nil {
			for _, e := range events {
				a.ui.PrintHint(fmt.Sprintf("  +%d %s (%s)", e.Points, e.Source, e.CreatedAt.Format("Jan 2 15:04")))
			}
		}
	}
}

func (a *cliApp) showHistory(ctx context.Context) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}

	attempts, err := a.flow.Attempts(ctx, a.journey.CurrentUserKey(), topic.ID)
	if err != nil {
		a.ui.PrintUrgent(err.Error())
		return
	}
	a.ui.PrintHeader(fmt.Sprintf("Fluency attempts (%d)", len(attempts)))
	for _, at := range attempts {
		a.ui.PrintInstruction(fmt.Sprintf("%s  score %d", at.CreatedAt.Format("Jan 2 15:04"), at.OverallScore))
		if at.Transcript != "" {
			a.ui.PrintHint(at.Transcript)
		}
	}

	transcripts := a.phrases.Transcripts()
	if len(transcripts) > 0 {
		a.ui.PrintHeader("Phrase recordings")
		for _, tr := range transcripts {
			a.ui.PrintInstruction(fmt.Sprintf("%d. %.0f%%  %s", tr.Index+1, tr.Accuracy, tr.Text))
		}
	}
}

// ── Quiz practice ────────────────────────────────────────────────

func (a *cliApp) startQuiz(ctx context.Context, payload string) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	mode, err := domain.ParsePracticeMode(payload)
	if err != nil || !mode.IsQuiz() {
		a.say(speech.LineUnknown(payload), speech.PriorityLow)
		return
	}
	a.setMode(mode)

	a.ui.PrintHint("Loading questions...")
	sess, err := a.engine.Start(ctx, mode, topic)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	if sess.Err != "" {
		a.sayUrgent(sess.Err)
		if err := a.engine.ClearError(ctx, mode, topic.ID); err != nil {
			a.log.Debug("clear error: %v", err)
		}
		return
	}
	if sess.ShowCongrats {
		a.showCompletion(sess)
		return
	}
	a.say(speech.LineQuizStart(mode.String(), sess.TotalQuestions), speech.PriorityNormal)

	if mode == domain.ModeListening && !sess.QuestionsVisible {
		a.say(speech.LineListeningIntro(), speech.PriorityNormal)
		a.playAll(ctx, topic)
		return
	}
	a.showQuestion(sess)
}

// quizSession returns the running quiz for the current topic.
func (a *cliApp) quizSession(ctx context.Context) (*domain.Session, *domain.Topic, bool) {
	mode, ok := a.currentMode()
	topic, _ := a.journey.Current()
	if !ok || !mode.IsQuiz() || topic == nil {
		a.say(speech.LineNoQuiz(), speech.PriorityLow)
		return nil, nil, false
	}
	sess, err := a.engine.Session(ctx, mode, topic.ID)
	if err != nil || sess.ID == "" {
		a.say(speech.LineNoQuiz(), speech.PriorityLow)
		return nil, nil, false
	}
	return sess, topic, true
}

func (a *cliApp) showQuestion(sess *domain.Session) {
	if sess.ShowCongrats {
		a.showCompletion(sess)
		return
	}
	if sess.Mode == domain.ModeListening && !sess.QuestionsVisible {
		a.ui.PrintHint("Say reveal when you're ready for the questions.")
		return
	}
	q := sess.Current()
	if q == nil {
		return
	}
	a.ui.PrintHeader(fmt.Sprintf("Question %d/%d", sess.Index+1, sess.TotalQuestions))
	a.ui.PrintInstruction(q.Prompt)
	for i, opt := range q.Options {
		a.ui.PrintOption(i+1, opt)
	}
	if a.audioOn {
		a.seq.Say(speech.LineQuestion(sess.Index+1, sess.TotalQuestions, q.Prompt), speech.PriorityNormal)
	}
}

func (a *cliApp) showCompletion(sess *domain.Session) {
	a.say(speech.LineQuizDone(sess.Mode.String(), sess.Score, sess.CorrectCount, sess.TotalQuestions, sess.TotalXP), speech.PriorityHigh)
	a.ui.PrintHint("Say restart to try again or dismiss to close.")
}

func (a *cliApp) answer(ctx context.Context, payload string) {
	sess, topic, ok := a.quizSession(ctx)
	if !ok {
		return
	}
	if sess.Submitting {
		a.say(speech.LineStillSubmitting(), speech.PriorityLow)
		return
	}
	if sess.Mode == domain.ModeListening && !sess.QuestionsVisible {
		a.ui.PrintHint("Say reveal to see the questions first.")
		return
	}
	q := sess.Current()
	if q == nil {
		a.say(speech.LineNoQuiz(), speech.PriorityLow)
		return
	}
	option, ok := matchOption(q.Options, payload)
	if !ok {
		a.say(speech.LineInvalidSelection(payload), speech.PriorityLow)
		return
	}

	next, err := a.engine.Select(ctx, sess.Mode, topic.ID, option)
	if err != nil {
		if errors.Is(err, domain.ErrSubmitting) {
			a.say(speech.LineStillSubmitting(), speech.PriorityLow)
			return
		}
		a.sayUrgent(err.Error())
		return
	}
	a.showQuestion(next)
}

// matchOption resolves a 1-based number or option text to the option.
func matchOption(options []string, payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if n, err := strconv.Atoi(payload); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, opt := range options {
		if strings.EqualFold(opt, payload) {
			return opt, true
		}
	}
	return "", false
}

// onSessionChange prints the verdict while the engine holds feedback.
func (a *cliApp) onSessionChange(s *domain.Session) {
	if !s.Revealed || s.AnswerCorrect == nil {
		return
	}
	key := fmt.Sprintf("%s/%d", s.ID, s.Index)
	a.mu.Lock()
	dup := a.verdict == key
	a.verdict = key
	a.mu.Unlock()
	if dup {
		return
	}
	if *s.AnswerCorrect {
		a.ui.PrintCorrect(speech.LineCorrect(s.LastAwardedXP))
		if a.audioOn {
			a.seq.Say(speech.LineCorrect(s.LastAwardedXP), speech.PriorityHigh)
		}
		return
	}
	a.say(speech.LineIncorrect(), speech.PriorityHigh)
}

func (a *cliApp) reveal(ctx context.Context) {
	sess, topic, ok := a.quizSession(ctx)
	if !ok {
		return
	}
	a.seq.Stop()
	sess, err := a.engine.RevealQuestions(ctx, sess.Mode, topic.ID)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.showQuestion(sess)
}

func (a *cliApp) restart(ctx context.Context) {
	sess, topic, ok := a.quizSession(ctx)
	if !ok {
		return
	}
	sess, err := a.engine.Restart(ctx, sess.Mode, topic)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.say(speech.LineQuizStart(sess.Mode.String(), sess.TotalQuestions), speech.PriorityNormal)
	if sess.Mode == domain.ModeListening && !sess.QuestionsVisible {
		a.playAll(ctx, topic)
		return
	}
	a.showQuestion(sess)
}

func (a *cliApp) dismiss(ctx context.Context) {
	topic, _ := a.journey.Current()
	if mode, ok := a.currentMode(); ok && mode.IsQuiz() && topic != nil {
		if err := a.engine.Dismiss(ctx, mode, topic.ID); err != nil {
			a.log.Debug("dismiss: %v", err)
		}
		a.clearMode()
	}
	a.phrases.DismissCongrats()
	a.turns.DismissCongrats()
	a.turns.DismissResult()
	a.ui.PrintHint("Dismissed.")
}

// ── Fluency ──────────────────────────────────────────────────────

func (a *cliApp) startFluency(ctx context.Context) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	a.setMode(domain.ModeFluency)
	a.recorder.Reset()
	if _, err := a.flow.Prepare(ctx, topic); err != nil {
		a.log.Warn("%v", err)
		a.ui.PrintHint("No practice prompt yet. Your recording will be scored locally.")
	}
	a.say(speech.LineFluencyPrompt(fluency.BuildPrompt(topic)), speech.PriorityNormal)
}

func (a *cliApp) record(ctx context.Context) {
	if mode, ok := a.currentMode(); !ok || mode != domain.ModeFluency {
		a.ui.PrintHint("Say fluency first.")
		return
	}
	if err := os.MkdirAll(a.recordDir, 0o755); err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.seq.Stop()
	path := filepath.Join(a.recordDir, fmt.Sprintf("fluency-%d.wav", time.Now().UnixNano()))
	if err := a.recorder.Start(ctx, path); err != nil {
		a.sayUrgent("Recording not available. " + err.Error())
		return
	}
	a.ui.PrintChat(speech.LineRecording())
}

func (a *cliApp) pauseRecording() {
	if err := a.recorder.Pause(); err != nil {
		a.ui.PrintHint(err.Error())
		return
	}
	left := a.recorder.Remaining()
	a.ui.PrintChat(speech.LineRecordingPaused())
	a.ui.PrintHint(timer.FormatRemaining(left) + " left")
	if a.audioOn {
		a.seq.Say(speech.FormatDurationSpeech(left)+" left.", speech.PriorityLow)
	}
}

func (a *cliApp) resumeRecording() {
	if err := a.recorder.Resume(); err != nil {
		a.ui.PrintHint(err.Error())
		return
	}
	a.ui.PrintChat(speech.LineRecordingResumed())
}

// stop ends a recording if one runs, and halts playback either way.
func (a *cliApp) stop(ctx context.Context) {
	a.seq.Stop()
	if a.take.Active() {
		a.finishTake(ctx)
		return
	}
	switch a.recorder.State() {
	case fluency.StateRecording, fluency.StatePaused:
		rec, err := a.recorder.Stop()
		if err != nil {
			a.sayUrgent(err.Error())
			return
		}
		a.submitFluency(ctx, rec)
	}
}

func (a *cliApp) onAutoStop(rec fluency.Recording) {
	a.say(speech.LineTimeUp(), speech.PriorityHigh)
	a.submitFluency(a.ctx, rec)
}

func (a *cliApp) submitFluency(ctx context.Context, rec fluency.Recording) {
	topic, _ := a.journey.Current()
	a.ui.PrintHint("Analyzing your speech...")
	res, err := a.flow.Submit(ctx, topic, rec)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	if res.Err != "" {
		a.ui.PrintUrgent(res.Err)
	}
	a.say(speech.LineFluencyResult(res.Score, res.XP, res.Completed), speech.PriorityHigh)
	if res.Attempt.Transcript != "" {
		a.ui.PrintHint("You said: " + res.Attempt.Transcript)
	}
	if res.Feedback != "" {
		a.ui.PrintInstruction(res.Feedback)
	}
	for _, s := range res.Suggestions {
		a.ui.PrintHint("- " + s)
	}
	if n := len(res.Analysis.Mispronunciations); n > 0 {
		a.ui.PrintHint("Check: " + strings.Join(res.Analysis.Mispronunciations, ", "))
	}
	if _, err := a.journey.RefreshProfile(ctx); err != nil {
		a.log.Debug("profile refresh: %v", err)
	}
}

// ── Conversation and pronunciation ───────────────────────────────

func (a *cliApp) onTurnStart(index int) {
	a.mu.Lock()
	a.playing = fmt.Sprintf("turn %d", index+1)
	a.mu.Unlock()
}

func (a *cliApp) onTurnDone(int) {
	a.mu.Lock()
	a.playing = ""
	a.mu.Unlock()
}

func (a *cliApp) onTurnError(index int, err error) {
	a.onTurnDone(index)
	a.ui.PrintUrgent(fmt.Sprintf("Turn %d could not be played: %v", index+1, err))
}

func (a *cliApp) play(ctx context.Context, payload string) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	if payload == "all" {
		a.showConversation(topic)
		a.playAll(ctx, topic)
		return
	}
	n, err := strconv.Atoi(payload)
	if err != nil || n < 1 || n > len(topic.Conversation) {
		a.say(speech.LineInvalidSelection(payload), speech.PriorityLow)
		return
	}
	a.playTurns(ctx, topic, []int{n - 1})
}

func (a *cliApp) playAll(ctx context.Context, topic *domain.Topic) {
	if !a.audioOn {
		a.showConversation(topic)
		return
	}
	title, turns := topic.Title, topic.Conversation
	go func() {
		if err := a.seq.PlayAll(ctx, title, turns, nil); err != nil {
			a.log.Debug("play all: %v", err)
		}
	}()
}

// playTurns prints the turns and plays them in order in the background.
func (a *cliApp) playTurns(ctx context.Context, topic *domain.Topic, indexes []int) {
	for _, i := range indexes {
		turn := topic.Conversation[i]
		a.ui.PrintChat(fmt.Sprintf("%s: %s", turn.Speaker, turn.Text))
	}
	if !a.audioOn || len(indexes) == 0 {
		return
	}
	title, turns := topic.Title, topic.Conversation
	go func() {
		for _, i := range indexes {
			if err := a.seq.PlayTurn(ctx, title, i, turns[i].Text, a.seq.VoiceFor(turns[i].Speaker)); err != nil {
				a.log.Debug("play turn %d: %v", i+1, err)
				return
			}
		}
	}()
}

func (a *cliApp) chooseRole(role string) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	if err := a.turns.SetRole(role); err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.setMode(domain.ModeConversation)
	a.say(speech.LineRoleChosen(a.turns.Role()), speech.PriorityNormal)
	for i, turn := range topic.Conversation {
		if strings.EqualFold(turn.Speaker, a.turns.Role()) {
			a.ui.PrintInstruction(fmt.Sprintf("%d. %s", i+1, turn.Text))
		}
	}
	a.ui.PrintHint("Submit each line with turn N, or turn N <wav>.")
}

func (a *cliApp) submitTurn(ctx context.Context, payload string) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		a.say(speech.LineUnknown(payload), speech.PriorityLow)
		return
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		a.say(speech.LineInvalidSelection(fields[0]), speech.PriorityLow)
		return
	}
	if len(fields) == 1 {
		a.startTake(fmt.Sprintf("turn-%d", n), func(ctx context.Context, path string) {
			a.submitTurn(ctx, fields[0]+" "+path)
		})
		return
	}
	path := strings.Join(fields[1:], " ")

	a.ui.PrintHint("Checking your turn...")
	out, err := a.turns.SubmitTurn(ctx, n-1, path)
	switch {
	case errors.Is(err, domain.ErrInvalidRole):
		a.ui.PrintHint("Pick a role first: role A or role B.")
		return
	case err != nil:
		a.sayUrgent(err.Error())
		return
	case out.Err != "":
		a.sayUrgent(out.Err)
		return
	}
	a.say(speech.LineTurnResult(n, out.Result.Accuracy), speech.PriorityHigh)
	if out.Result.Transcription != "" {
		a.ui.PrintHint("Heard: " + out.Result.Transcription)
	}
	if out.Result.Feedback != "" {
		a.ui.PrintInstruction(out.Result.Feedback)
	}
	if out.Finished {
		a.say(speech.LineConversationDone(), speech.PriorityHigh)
	}
}

// startTake records a phrase or turn from the microphone. The next stop
// hands the file to submit.
func (a *cliApp) startTake(prefix string, submit func(ctx context.Context, path string)) {
	if err := os.MkdirAll(a.recordDir, 0o755); err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.seq.Stop()
	path := filepath.Join(a.recordDir, fmt.Sprintf("%s-%d.wav", prefix, time.Now().UnixNano()))
	switch err := a.take.Start(path); {
	case errors.Is(err, fluency.ErrMicBusy):
		a.ui.PrintHint("The microphone is busy. Say stop first.")
		return
	case err != nil:
		a.sayUrgent("Recording not available. " + err.Error())
		a.ui.PrintHint("You can also pass the path to a WAV file.")
		return
	}
	a.mu.Lock()
	a.onTake = submit
	a.mu.Unlock()
	a.ui.PrintChat("Recording. Say stop when you're done.")
}

func (a *cliApp) finishTake(ctx context.Context) {
	a.mu.Lock()
	submit := a.onTake
	a.onTake = nil
	a.mu.Unlock()

	path, err := a.take.Stop()
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	if submit != nil {
		submit(ctx, path)
	}
}

func (a *cliApp) showPhraseTarget() {
	topic, _ := a.journey.Current()
	if topic == nil || topic.TotalPhrases() == 0 {
		return
	}
	idx := a.phrases.TargetIndex()
	if idx >= len(topic.Material) {
		return
	}
	a.ui.PrintInstruction(speech.LinePhraseTarget(idx+1, topic.TotalPhrases(), topic.Material[idx]))
}

func (a *cliApp) submitPhrase(ctx context.Context, path string) {
	a.setMode(domain.ModePronunciation)
	if path == "" {
		a.startTake("phrase", a.submitPhrase)
		return
	}
	a.ui.PrintHint("Checking your pronunciation...")
	out, err := a.phrases.Submit(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNoTopic) {
			a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
			return
		}
		a.sayUrgent(err.Error())
		return
	}
	if out.Err != "" {
		a.sayUrgent(out.Err)
		return
	}
	a.say(speech.LinePhraseResult(out.Result.Accuracy, out.Result.Feedback), speech.PriorityHigh)
	if out.Result.Transcription != "" {
		a.ui.PrintHint("Heard: " + out.Result.Transcription)
	}
	if out.TopicCompleted {
		topic, _ := a.journey.Current()
		if topic != nil {
			a.say(speech.LineTopicCompleted(topic.Title), speech.PriorityHigh)
		}
		if out.Unlocked != nil {
			a.ui.PrintCorrect("Unlocked: " + out.Unlocked.Title)
		}
		return
	}
	a.showPhraseTarget()
}

// ── Rehearsal ────────────────────────────────────────────────────

func (a *cliApp) rehearse(ctx context.Context, role string) {
	step, err := a.rehearsal.ChooseRole(role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoTopic):
			a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		case errors.Is(err, domain.ErrNotFound):
			a.ui.PrintHint("This topic has no conversation to rehearse.")
		default:
			a.sayUrgent(err.Error())
		}
		return
	}
	a.setMode(domain.ModeConversation)
	a.say(speech.LineRoleChosen(a.rehearsal.Role()), speech.PriorityNormal)
	a.handleStep(ctx, step)
}

func (a *cliApp) sayLine(ctx context.Context, text string) {
	step, err := a.rehearsal.OnTranscript(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotActive) {
			a.ui.PrintHint("Start a rehearsal first: rehearse A or rehearse B.")
			return
		}
		a.sayUrgent(err.Error())
		return
	}
	a.handleStep(ctx, step)
}

func (a *cliApp) handleStep(ctx context.Context, step *journey.RehearsalStep) {
	a.mu.Lock()
	a.lastStep = step
	a.mu.Unlock()

	topic, _ := a.journey.Current()
	if topic != nil && len(step.AITurns) > 0 {
		a.playTurns(ctx, topic, step.AITurns)
	}
	switch {
	case step.Finished:
		if step.Message != "" {
			a.say(step.Message, speech.PriorityHigh)
		}
		if step.XP > 0 {
			a.ui.PrintCorrect(fmt.Sprintf("+%d XP", step.XP))
		}
		if _, err := a.journey.RefreshProfile(ctx); err != nil {
			a.log.Debug("profile refresh: %v", err)
		}
	case step.Reveal != "":
		a.ui.PrintUrgent("The line is: " + step.Reveal)
	case step.Hint != "":
		a.ui.PrintHint("Not quite. Hint: " + step.Hint)
	case step.Prompt >= 0:
		if step.Message != "" {
			a.ui.PrintChat(step.Message)
		}
		a.ui.PrintInstruction(step.Expected)
	}
}

func (a *cliApp) listen(ctx context.Context) {
	if a.ear == nil {
		a.say(speech.LineVoiceDisabled(), speech.PriorityLow)
		return
	}
	a.ui.PrintHint("Listening...")
	text, err := a.ear.Listen(ctx)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	if text == "" {
		a.ui.PrintHint("Didn't hear anything.")
		return
	}
	a.ui.PrintVoice(text)
	if a.rehearsal.Active() {
		a.sayLine(ctx, text)
		return
	}
	a.askTutor(ctx, text)
}

// ── AI tutor ─────────────────────────────────────────────────────

func (a *cliApp) askTutor(ctx context.Context, message string) {
	if a.tutor == nil {
		a.say(speech.LineAIDisabled(), speech.PriorityLow)
		return
	}
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}

	filler := speech.LineThinking()
	a.ui.PrintHint(filler)
	if a.audioOn {
		a.seq.Say(filler, speech.PriorityCritical)
	}

	reply, err := a.tutor.Chat(ctx, topic, a.history.Messages(), message)
	if err != nil {
		a.log.Error("tutor: %v", err)
		var apiErr *gpt.APIError
		if errors.As(err, &apiErr) && apiErr.RateLimited() {
			a.ui.PrintHint("The tutor is busy. Wait a few seconds and ask again.")
			return
		}
		a.say(speech.LineAIError(), speech.PriorityNormal)
		return
	}
	a.history.Add(gpt.RoleUser, message)
	a.history.Add(gpt.RoleAssistant, reply.Reply)

	if reply.Reply != "" {
		a.say(reply.Reply, speech.PriorityHigh)
	}
	if err := gpt.Apply(ctx, reply.Actions, topic.ID, a.actions); err != nil {
		a.log.Warn("tutor actions: %v", err)
	}
}

func (a *cliApp) explain(ctx context.Context, payload string) {
	if a.tutor == nil {
		a.say(speech.LineAIDisabled(), speech.PriorityLow)
		return
	}
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	n, err := strconv.Atoi(payload)
	if err != nil || n < 1 || n > len(topic.Conversation) {
		a.say(speech.LineInvalidSelection(payload), speech.PriorityLow)
		return
	}
	text, err := a.tutor.ExplainTurn(ctx, topic, topic.Conversation[n-1].Text)
	if err != nil {
		a.log.Error("explain: %v", err)
		a.say(speech.LineAIError(), speech.PriorityNormal)
		return
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			a.ui.PrintInstruction(line)
		}
	}
}

// ── Review and completion ────────────────────────────────────────

func (a *cliApp) review(payload string) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	switch payload {
	case "":
		a.phrases.BeginReview()
	case "prev":
		a.phrases.InspectPrevious()
	case "next":
		a.phrases.InspectNext()
	case "done":
		a.phrases.ClearInspection()
		a.showPhraseTarget()
		return
	default:
		n, _ := strconv.Atoi(payload)
		if err := a.phrases.Inspect(n - 1); err != nil {
			a.ui.PrintHint(fmt.Sprintf("You haven't practiced phrase %s yet.", payload))
			return
		}
	}

	idx, ok := a.phrases.Inspected()
	if !ok {
		a.ui.PrintHint("Nothing to review yet.")
		return
	}
	if idx < len(topic.Material) {
		a.ui.PrintHeader(fmt.Sprintf("Phrase %d/%d: %s", idx+1, topic.TotalPhrases(), topic.Material[idx]))
	}
	for _, tr := range a.phrases.Transcripts() {
		if tr.Index != idx {
			continue
		}
		a.ui.PrintInstruction(fmt.Sprintf("%.0f%%  heard: %s", tr.Accuracy, tr.Text))
		if tr.Feedback != "" {
			a.ui.PrintHint(tr.Feedback)
		}
		a.ui.PrintHint("Recording: " + tr.AudioPath)
		return
	}
	a.ui.PrintHint("Not practiced yet.")
}

// completeTopic asks the server to complete the topic once the practice
// scores meet the requirement.
func (a *cliApp) completeTopic(ctx context.Context) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	if s := topic.PracticeScores; s != nil && !s.MeetsRequirement && !topic.Completed {
		a.ui.PrintHint(fmt.Sprintf("Average score %.0f is not enough yet. Keep practicing.", s.Average))
		return
	}
	res, err := a.journey.MarkCurrentTopicComplete(ctx)
	switch {
	case err != nil:
		a.sayUrgent(err.Error())
		return
	case res == nil:
		a.ui.PrintHint("This topic is already completed.")
		return
	case !res.Success:
		a.sayUrgent(res.Message)
		return
	}
	a.say(speech.LineTopicCompleted(topic.Title), speech.PriorityHigh)
	for _, t := range a.journey.Topics() {
		if t.ID == res.UnlockedTopicID && res.UnlockedTopicID != "" {
			a.ui.PrintCorrect("Unlocked: " + t.Title)
		}
	}
}

// ── Other ────────────────────────────────────────────────────────

func (a *cliApp) export(ctx context.Context, path string) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	attempts, err := a.flow.Attempts(ctx, a.journey.CurrentUserKey(), topic.ID)
	if err != nil {
		a.sayUrgent(err.Error())
		return
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	if err := report.WriteAttempts(path, topic.Title, attempts); err != nil {
		a.sayUrgent(err.Error())
		return
	}
	a.ui.PrintCorrect(fmt.Sprintf("Exported %d attempts to %s", len(attempts), path))
}

func (a *cliApp) showStatus(ctx context.Context) {
	topic, _ := a.journey.Current()
	if topic == nil {
		a.say(speech.LinePickTopicFirst(), speech.PriorityNormal)
		return
	}
	xp := 0
	if st := a.journey.Stats(); st != nil {
		xp = st.XP
	}
	mode, ok := a.currentMode()
	question, total, modeName := 0, 0, ""
	if ok {
		modeName = mode.String()
		if mode.IsQuiz() {
			if sess, err := a.engine.Session(ctx, mode, topic.ID); err == nil {
				question, total = min(sess.Index+1, sess.TotalQuestions), sess.TotalQuestions
			}
		}
	}
	a.say(speech.LineStatus(topic.Title, modeName, question, total, xp), speech.PriorityLow)

	if sessions, err := a.engine.ActiveSessions(ctx); err == nil {
		for _, s := range sessions {
			if s.TopicID == topic.ID && s.Mode == mode && ok {
				continue
			}
			a.ui.PrintHint(fmt.Sprintf("Unfinished %s quiz: question %d/%d", s.Mode, min(s.Index+1, s.TotalQuestions), s.TotalQuestions))
		}
	}
	if role := a.turns.Role(); role != "" {
		scores := a.turns.TurnScores()
		a.ui.PrintHint(fmt.Sprintf("Conversation as %s: %d turns scored", role, len(scores)))
		for i := range topic.Conversation {
			if score, ok := scores[i]; ok {
				a.ui.PrintHint(fmt.Sprintf("  turn %d: %d%%", i+1, score))
			}
		}
		if last := a.turns.LastResult(); last != nil && last.Result != nil && last.Result.Feedback != "" {
			a.ui.PrintHint("Last feedback: " + last.Result.Feedback)
		}
	}
	if t := topic.PhraseProgress; t != nil && t.TotalPhrases > 0 {
		a.ui.PrintHint(fmt.Sprintf("Phrases practiced: %d/%d", len(a.phrases.Transcripts()), t.TotalPhrases))
	}
}

func (a *cliApp) quit() {
	a.say(speech.LineBye(), speech.PriorityNormal)
	if !a.audioOn {
		return
	}
	// Let the goodbye finish, but never hang on a stuck device.
	deadline := time.Now().Add(3 * time.Second)
	time.Sleep(300 * time.Millisecond)
	for a.seq.IsSpeaking() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

func (a *cliApp) repeat() {
	last := a.seq.LastSpoken()
	if last == "" {
		a.ui.PrintHint("Nothing to repeat yet.")
		return
	}
	a.ui.PrintChat(last)
	if a.audioOn {
		a.seq.Say(last, speech.PriorityHigh)
	}
}

// shutdown stops audio and any running recording.
func (a *cliApp) shutdown() {
	a.seq.Stop()
	if a.recorder.Active() {
		if _, err := a.recorder.Stop(); err != nil {
			a.log.Debug("stopping recorder: %v", err)
		}
	}
	if a.take.Active() {
		if _, err := a.take.Stop(); err != nil {
			a.log.Debug("stopping take: %v", err)
		}
	}
}

func (a *cliApp) showHelp() {
	a.ui.PrintHeader("Topics:")
	a.ui.PrintInstruction("  topics            Show your speaking journey")
	a.ui.PrintInstruction("  select N          Open a topic by number or name")
	a.ui.PrintInstruction("  profile / history Level, XP, streak / past attempts")
	a.ui.PrintHeader("Quizzes:")
	a.ui.PrintInstruction("  grammar / vocab / listening   Start a quiz")
	a.ui.PrintInstruction("  1..4 / pick X     Answer the current question")
	a.ui.PrintInstruction("  reveal            Show the listening questions")
	a.ui.PrintInstruction("  restart / dismiss Try again / close results")
	a.ui.PrintHeader("Speaking:")
	a.ui.PrintInstruction("  fluency           Show the fluency prompt")
	a.ui.PrintInstruction("  record / pause / resume / stop   Control the recording")
	a.ui.PrintInstruction("  phrase [wav]      Record or submit the current pronunciation phrase")
	a.ui.PrintInstruction("  review [N|prev|next|done]   Look back at practiced phrases")
	a.ui.PrintHeader("Conversation:")
	a.ui.PrintInstruction("  play N / play all Play a turn or the whole dialogue")
	a.ui.PrintInstruction("  role A|B          Pick your role, then turn N [wav]")
	a.ui.PrintInstruction("  rehearse A|B      Practice with the tutor, then say ... or listen")
	a.ui.PrintHeader("AI tutor (requires GPT_CHAT_KEY + GPT_CHAT_ENDPOINT):")
	a.ui.PrintInstruction("  ask ...           Ask the tutor anything about the topic")
	a.ui.PrintInstruction("  explain N         Explain a conversation line")
	a.ui.PrintHeader("Other:")
	a.ui.PrintInstruction("  complete          Finish the topic once your scores are high enough")
	a.ui.PrintInstruction("  repeat            Hear the last coach line again")
	a.ui.PrintInstruction("  export <file>     Save fluency attempts as a spreadsheet")
	a.ui.PrintInstruction("  status / help / quit")
}
