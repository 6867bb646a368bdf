// Package pipeline sequences the stages that turn a submission into a
// narrated demo video.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yangwenmai/kirbuk/internal/engine"
	"github.com/yangwenmai/kirbuk/internal/media"
	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/notify"
	"github.com/yangwenmai/kirbuk/internal/observe"
	"github.com/yangwenmai/kirbuk/internal/runner"
	"github.com/yangwenmai/kirbuk/internal/speech"
	"github.com/yangwenmai/kirbuk/internal/store"
)

// DefaultDuration is the narration length used when the recording's
// duration cannot be measured.
const DefaultDuration = 120.0

// notifyTimeout bounds notifications sent after the run context ended.
const notifyTimeout = 30 * time.Second

// Store is the artifact store the orchestrator reads and writes.
type Store interface {
	store.ObjectReader
	store.ObjectWriter
}

// ScriptGenerator produces the automation and voice scripts.
type ScriptGenerator interface {
	AutomationScript(ctx context.Context, req engine.AutomationRequest) (string, error)
	VoiceScript(ctx context.Context, req engine.VoiceRequest) (string, error)
}

// AutomationRunner executes an automation script and uploads its recording.
type AutomationRunner interface {
	Run(ctx context.Context, workDir, submissionID, script string) (runner.Result, error)
}

// Muxer combines video and audio and measures durations.
type Muxer interface {
	media.Prober
	Mux(ctx context.Context, req media.MuxRequest) error
}

// Reporter receives every stage failure.
type Reporter interface {
	Report(ctx context.Context, ev observe.Event)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Store       Store
	Explorer    engine.Explorer
	Generator   ScriptGenerator
	Runner      AutomationRunner
	Muxer       Muxer
	Synthesizer speech.Synthesizer
	Sender      notify.Sender
	Reporter    Reporter
}

// Options tune an Orchestrator. Zero values select defaults.
type Options struct {
	Layout model.Layout

	// WorkRoot holds per-run scratch directories; empty means os.TempDir.
	WorkRoot string
	// KeepWorkDir leaves scratch directories in place for debugging.
	KeepWorkDir bool

	// MusicPath is an optional background track looped under the voice.
	MusicPath   string
	VoiceVolume float64
	MusicVolume float64

	DefaultDuration float64
	MaxActions      int

	// StatusURL returns the status page link put in emails.
	StatusURL func(submissionID string) string
}

// Orchestrator runs the pipeline for one submission at a time per call; it
// holds no per-submission state and is safe for concurrent use.
type Orchestrator struct {
	deps Deps
	opts Options
}

// New creates an Orchestrator. A nil Reporter logs only.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Reporter == nil {
		deps.Reporter = observe.Log{}
	}
	if deps.Sender == nil {
		deps.Sender = notify.LogSender{}
	}
	if opts.Layout.Prefix == "" {
		opts.Layout = model.NewLayout("")
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultDuration
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// run is the state of one invocation.
type run struct {
	sub    model.Submission
	log    *slog.Logger
	result Result

	workDir    string
	narrative  string
	automation string
	videoPath  string
	duration   float64
	voiceSSML  string
	voicePath  string
}

// IsDuplicate reports whether the submission's payload already exists. It is
// the only replay guard; the store is its sole source of truth.
func (o *Orchestrator) IsDuplicate(ctx context.Context, submissionID string) (bool, error) {
	return o.deps.Store.Exists(ctx, o.opts.Layout.Key(submissionID, model.ArtifactPayload))
}

// Run executes every stage for sub in order.
//
// A duplicate submission returns immediately with Result.Duplicate set. An
// exploration failure is fatal: a failure notification is sent and the
// error is returned as a *StepError. Every later stage failure is reported,
// recorded in Result.Degraded and worked around. Run also stops with a
// *StepError when ctx ends.
func (o *Orchestrator) Run(ctx context.Context, sub model.Submission) (Result, error) {
	r := &run{
		sub:    sub,
		log:    slog.With("submission_id", sub.ID),
		result: Result{SubmissionID: sub.ID},
	}

	dup, err := o.IsDuplicate(ctx, sub.ID)
	if err != nil {
		r.log.Warn("duplicate check failed, proceeding", "error", err)
	} else if dup {
		r.log.Info("duplicate submission, skipping")
		r.result.Duplicate = true
		return r.result, nil
	}
	r.done(StageDuplicateCheck)

	if err := o.persistPayload(ctx, r); err != nil {
		return r.result, o.fail(ctx, r, StagePayload, err)
	}
	r.done(StagePayload)

	o.notify(ctx, r, StageNotifyStarted, notify.Started(sub, o.statusURL(sub.ID)))

	if err := o.explore(ctx, r); err != nil {
		return r.result, o.fail(ctx, r, StageExplore, err)
	}
	r.done(StageExplore)

	defer o.cleanup(r)
	steps := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageNarrative, o.persistNarrative},
		{StageAutomationGenerate, o.generateAutomation},
		{StageAutomationRun, o.runAutomation},
		{StageDuration, o.measureDuration},
		{StageVoiceScript, o.generateVoiceScript},
		{StageVoice, o.synthesizeVoice},
		{StageMux, o.mux},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return r.result, o.fail(ctx, r, step.stage, err)
		}
		o.degrade(ctx, r, step.stage, step.fn(ctx, r))
	}

	o.notify(ctx, r, StageNotifyCompleted, notify.Completed(sub, o.statusURL(sub.ID)))
	r.log.Info("pipeline finished", "completed", len(r.result.Completed), "degraded", r.result.Degraded)
	return r.result, nil
}

// errSkipped marks a stage with nothing to do because an earlier stage
// degraded. It is neither completed nor degraded.
var errSkipped = errors.New("skipped")

func (r *run) done(stage Stage) {
	r.result.Completed = append(r.result.Completed, stage)
}

func (o *Orchestrator) degrade(ctx context.Context, r *run, stage Stage, err error) {
	switch {
	case err == nil:
		r.done(stage)
	case errors.Is(err, errSkipped):
		r.log.Info("stage skipped", "stage", stage)
	default:
		r.log.Error("stage failed, continuing", "stage", stage, "error", err)
		r.result.Degraded = append(r.result.Degraded, stage)
		o.deps.Reporter.Report(ctx, observe.Event{
			SubmissionID: r.sub.ID,
			Stage:        string(stage),
			ProductURL:   r.sub.ProductURL,
			Err:          err,
		})
	}
}

// fail reports a fatal stage failure, sends the failure notification and
// returns the error to propagate.
func (o *Orchestrator) fail(ctx context.Context, r *run, stage Stage, err error) error {
	r.log.Error("pipeline failed", "stage", stage, "error", err)
	o.deps.Reporter.Report(ctx, observe.Event{
		SubmissionID: r.sub.ID,
		Stage:        string(stage),
		ProductURL:   r.sub.ProductURL,
		Err:          err,
		Fatal:        true,
	})
	var link string
	if r.result.Has(StageExplore) {
		link = o.statusURL(r.sub.ID)
	}
	o.notify(ctx, r, StageNotifyFailed, notify.Failed(r.sub, string(stage), link, err))
	return &StepError{Step: stage, Err: err}
}

// notify sends msg. Failures are logged only; the run context may already
// be done, so sending uses its own deadline.
func (o *Orchestrator) notify(ctx context.Context, r *run, stage Stage, msg notify.Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := o.deps.Sender.Send(sendCtx, msg); err != nil {
		r.log.Warn("notification failed", "stage", stage, "error", err)
		return
	}
	if stage == StageNotifyStarted || stage == StageNotifyCompleted {
		r.done(stage)
	}
}

func (o *Orchestrator) statusURL(id string) string {
	if o.opts.StatusURL == nil {
		return ""
	}
	return o.opts.StatusURL(id)
}

func (o *Orchestrator) put(ctx context.Context, r *run, kind model.ArtifactKind, data []byte) error {
	return o.putAs(ctx, r, kind, data, model.ContentType(kind))
}

func (o *Orchestrator) putAs(ctx context.Context, r *run, kind model.ArtifactKind, data []byte, contentType string) error {
	key := o.opts.Layout.Key(r.sub.ID, kind)
	if err := o.deps.Store.Put(ctx, key, data, contentType); err != nil {
		return fmt.Errorf("store %s: %w", kind, err)
	}
	r.log.Info("artifact stored", "kind", kind, "key", key, "bytes", len(data))
	return nil
}

func (o *Orchestrator) persistPayload(ctx context.Context, r *run) error {
	data, err := json.MarshalIndent(r.sub, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return o.put(ctx, r, model.ArtifactPayload, data)
}

// credentials returns the test login, or nothing when only half of it was
// supplied.
func credentials(sub model.Submission) (username, password string) {
	if !sub.HasCredentials() {
		return "", ""
	}
	return sub.TestUsername, sub.TestPassword
}

func (o *Orchestrator) explore(ctx context.Context, r *run) error {
	r.log.Info("exploring", "product_url", r.sub.ProductURL, "login", r.sub.HasCredentials())
	username, password := credentials(r.sub)
	narrative, err := o.deps.Explorer.Explore(ctx, engine.ExploreRequest{
		SessionID:  r.sub.ID,
		URL:        r.sub.ProductURL,
		Directions: r.sub.Directions,
		Username:   username,
		Password:   password,
		MaxActions: o.opts.MaxActions,
	})
	if err != nil {
		return err
	}
	r.narrative = narrative
	return nil
}

func (o *Orchestrator) persistNarrative(ctx context.Context, r *run) error {
	return o.put(ctx, r, model.ArtifactNarrative, []byte(r.narrative))
}

func (o *Orchestrator) generateAutomation(ctx context.Context, r *run) error {
	username, password := credentials(r.sub)
	script, err := o.deps.Generator.AutomationScript(ctx, engine.AutomationRequest{
		Narrative:  r.narrative,
		URL:        r.sub.ProductURL,
		Directions: r.sub.Directions,
		Username:   username,
		Password:   password,
	})
	if err != nil {
		return err
	}
	r.automation = script
	return o.put(ctx, r, model.ArtifactAutomation, []byte(script))
}

func (o *Orchestrator) runAutomation(ctx context.Context, r *run) error {
	if r.automation == "" {
		return errSkipped
	}
	dir, err := os.MkdirTemp(o.opts.WorkRoot, "kirbuk-"+r.sub.ID+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	r.workDir = dir

	res, err := o.deps.Runner.Run(ctx, dir, r.sub.ID, r.automation)
	if runner.IsTimeout(err) {
		r.log.Warn("automation script hit its timeout", "dir", dir)
	}
	if err != nil {
		return err
	}
	r.videoPath = res.LocalPath
	return nil
}

func (o *Orchestrator) measureDuration(ctx context.Context, r *run) error {
	r.duration = o.opts.DefaultDuration
	if r.videoPath != "" {
		r.duration = media.DurationOr(ctx, o.deps.Muxer, r.videoPath, o.opts.DefaultDuration)
	}
	r.log.Info("narration duration", "seconds", r.duration)
	return nil
}

func (o *Orchestrator) generateVoiceScript(ctx context.Context, r *run) error {
	req := engine.VoiceRequest{
		Narrative:       r.narrative,
		URL:             r.sub.ProductURL,
		DurationSeconds: r.duration,
		Humorous:        r.sub.Humorous(),
	}
	// Pace against the automation only when it actually recorded.
	if r.videoPath != "" {
		req.Automation = r.automation
	}
	ssml, err := o.deps.Generator.VoiceScript(ctx, req)
	if err != nil {
		return err
	}
	r.voiceSSML = ssml
	return o.put(ctx, r, model.ArtifactVoiceScript, []byte(ssml))
}

func (o *Orchestrator) synthesizeVoice(ctx context.Context, r *run) error {
	if r.voiceSSML == "" {
		return errSkipped
	}
	audio, err := o.deps.Synthesizer.Synthesize(ctx, r.voiceSSML)
	if err != nil {
		return err
	}
	if err := o.put(ctx, r, model.ArtifactVoice, audio); err != nil {
		return err
	}
	if r.workDir == "" {
		return nil
	}
	path := filepath.Join(r.workDir, model.FileName(r.sub.ID, model.ArtifactVoice))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("write voice: %w", err)
	}
	r.voicePath = path
	return nil
}

func (o *Orchestrator) mux(ctx context.Context, r *run) error {
	if r.videoPath == "" || r.voicePath == "" {
		return errSkipped
	}
	out := filepath.Join(r.workDir, "final"+media.OutputExt(r.videoPath))
	req := media.MuxRequest{
		Video:       r.videoPath,
		Voice:       r.voicePath,
		Output:      out,
		VoiceVolume: o.opts.VoiceVolume,
		MusicVolume: o.opts.MusicVolume,
	}
	if o.opts.MusicPath != "" {
		if _, err := os.Stat(o.opts.MusicPath); err == nil {
			req.Music = o.opts.MusicPath
		} else {
			r.log.Warn("background music unavailable, muxing voice only", "path", o.opts.MusicPath, "error", err)
		}
	}
	if err := o.deps.Muxer.Mux(ctx, req); err != nil {
		return err
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return fmt.Errorf("read muxed video: %w", err)
	}
	return o.putAs(ctx, r, model.ArtifactVideo, data, model.VideoContentType(out))
}

func (o *Orchestrator) cleanup(r *run) {
	if r.workDir == "" || o.opts.KeepWorkDir {
		return
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		r.log.Warn("remove work dir", "dir", r.workDir, "error", err)
	}
}
