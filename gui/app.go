// Package gui is the default session host: a small fyne window with a
// record toggle, a live transcript and an input level meter.
//
// fyne owns the main thread. Notifier callbacks arrive on the capture
// goroutine and are marshaled through fyne.Do; widget mutation outside
// fyne.Do happens only in handlers fyne itself invokes.
package gui

import (
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"listen/audio"
	"listen/beep"
	"listen/clipboard"
	"listen/log"
	"listen/session"
	"listen/transcriber"
)

// Config carries what the window needs to run recording sessions.
type Config struct {
	Audio  audio.Context
	Device *audio.DeviceInfo

	// NewEngine runs on a background goroutine at startup. Recording
	// stays disabled until it returns; an error disables it for good.
	NewEngine func() (transcriber.Transcriber, error)

	SilenceTimeout time.Duration
}

type App struct {
	cfg Config
	log zerolog.Logger

	fyneApp fyne.App
	window  fyne.Window

	status     *widget.Label
	recordBtn  *widget.Button
	level      *widget.ProgressBar
	transcript *widget.Label
	scroll     *container.Scroll

	mu      sync.Mutex
	engine  transcriber.Transcriber
	session *session.Session
	final   string

	quit     chan struct{}
	quitOnce sync.Once
}

func NewApp(cfg Config) *App {
	return &App{
		cfg:  cfg,
		log:  log.New("gui"),
		quit: make(chan struct{}),
	}
}

// Run opens the window and blocks until it closes. The returned string
// is the final transcript of the recording, possibly empty. Stopping a
// recording, the silence watchdog and closing the window all end the
// event loop; the caller prints the transcript exactly once.
func Run(a *App) (string, error) {
	a.fyneApp = app.NewWithID("io.listen.app")
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	a.window = a.fyneApp.NewWindow("Listen")
	a.buildWidgets()
	a.window.Resize(fyne.NewSize(400, 300))
	a.window.SetFixedSize(true)
	a.window.CenterOnScreen()
	a.window.SetCloseIntercept(a.onClose)

	go a.loadEngine()
	go a.pollSilence()

	a.window.ShowAndRun()

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final, nil
}

func (a *App) buildWidgets() {
	a.status = widget.NewLabel("Initializing...")
	a.status.Alignment = fyne.TextAlignCenter

	a.recordBtn = widget.NewButton("🎤 Record", a.toggleRecording)
	a.recordBtn.Disable()

	a.level = widget.NewProgressBar()
	a.level.TextFormatter = func() string { return "" }

	a.transcript = widget.NewLabel("")
	a.transcript.Wrapping = fyne.TextWrapWord
	a.scroll = container.NewVScroll(a.transcript)

	copyBtn := widget.NewButton("Copy", a.copyTranscript)

	top := container.NewVBox(a.status, a.recordBtn, a.level)
	a.window.SetContent(container.NewBorder(top, copyBtn, nil, nil, a.scroll))
}

func (a *App) loadEngine() {
	a.setStatus("Loading model...")
	eng, err := a.cfg.NewEngine()
	if err != nil {
		a.log.Error().Err(err).Msg("engine init failed")
		beep.PlayError()
		a.setStatus("Error: " + err.Error())
		return
	}
	a.mu.Lock()
	a.engine = eng
	a.mu.Unlock()
	a.log.Info().Str("engine", eng.Name()).Msg("engine ready")
	fyne.Do(func() {
		a.status.SetText("Ready to record")
		a.recordBtn.Enable()
	})
}

// toggleRecording runs on the fyne thread (button handler).
func (a *App) toggleRecording() {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s != nil && s.State() == session.StateRecording {
		a.stopRecording(s)
		return
	}
	a.startRecording()
}

func (a *App) startRecording() {
	a.mu.Lock()
	eng := a.engine
	a.mu.Unlock()
	if eng == nil {
		return
	}
	s, err := session.New(session.Config{
		Audio:          a.cfg.Audio,
		Device:         a.cfg.Device,
		Transcriber:    eng,
		Notifier:       a,
		SilenceTimeout: a.cfg.SilenceTimeout,
	})
	if err != nil {
		a.status.SetText("Error: " + err.Error())
		return
	}
	if err := s.Start(); err != nil {
		a.log.Error().Err(err).Msg("session start failed")
		a.status.SetText("Error: " + err.Error())
		return
	}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	a.status.SetText("Recording...")
	a.recordBtn.SetText("⏹ Stop")
	a.transcript.SetText("")
	beep.PlayStart()
}

func (a *App) stopRecording(s *session.Session) {
	a.status.SetText("Processing...")
	a.recordBtn.Disable()
	// Stop blocks until the capture goroutine drains, so keep it off
	// the fyne thread.
	go func() {
		final, _ := s.Stop()
		beep.PlayStop()
		a.closeWith(final)
	}()
}

// Close ends the event loop from outside the fyne thread, stopping a
// live session first. Used by the SIGINT handler.
func (a *App) Close() {
	fyne.Do(a.onClose)
}

// onClose handles the window close button. A live session is stopped
// first so its last window still lands in the transcript.
func (a *App) onClose() {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		a.closeWith("")
		return
	}
	a.status.SetText("Processing...")
	go func() {
		final, err := s.Stop()
		if err == nil {
			beep.PlayStop()
		}
		a.closeWith(final)
	}()
}

func (a *App) pollSilence() {
	ticker := time.NewTicker(session.SilencePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			return
		case now := <-ticker.C:
			a.mu.Lock()
			s := a.session
			a.mu.Unlock()
			if s == nil {
				continue
			}
			if final, closed := s.CheckSilence(now); closed {
				a.log.Info().Msg("silence timeout, closing")
				a.setStatus("Processing...")
				beep.PlayStop()
				a.closeWith(final)
			}
		}
	}
}

// closeWith records the final transcript and ends the event loop. The
// first caller wins; later calls are no-ops.
func (a *App) closeWith(final string) {
	a.quitOnce.Do(func() {
		a.mu.Lock()
		a.final = final
		a.mu.Unlock()
		close(a.quit)
		fyne.Do(func() { a.fyneApp.Quit() })
	})
}

func (a *App) copyTranscript() {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return
	}
	if err := clipboard.Copy(s.Transcript()); err != nil {
		a.log.Warn().Err(err).Msg("clipboard copy failed")
	}
}

func (a *App) setStatus(text string) {
	fyne.Do(func() { a.status.SetText(text) })
}

// TranscriptChanged implements session.Notifier.
func (a *App) TranscriptChanged(snapshot string) {
	fyne.Do(func() {
		a.transcript.SetText(snapshot)
		a.scroll.ScrollToBottom()
	})
}

// AudioLevel implements session.Notifier. Speech sits well below full
// scale, so the meter amplifies before clamping.
func (a *App) AudioLevel(level float64) {
	v := math.Min(level*8, 1)
	fyne.Do(func() { a.level.SetValue(v) })
}

// SessionError implements session.Notifier. Failed windows are logged
// and the session keeps recording; anything that closed the session
// resets the window so the user can try again.
func (a *App) SessionError(err error) {
	a.log.Error().Err(err).Msg("session error")
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s != nil && s.State() == session.StateRecording {
		return
	}
	beep.PlayError()
	fyne.Do(func() {
		a.status.SetText("Error: " + err.Error())
		a.recordBtn.SetText("🎤 Record")
		a.recordBtn.Enable()
		a.level.SetValue(0)
	})
}
