package mem

import (
	"log/slog"
	"time"

	"bsid.es/alarmclock"
)

var (
	_ alarmclock.Display     = (*Logger)(nil)
	_ alarmclock.SoundPlayer = (*Logger)(nil)
)

// Logger stands in for a display and a speaker by writing what they would
// show and play to a structured log.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) ShowNotification(message string, d time.Duration) {
	l.logger.Info("notification", slog.String("message", message), slog.Duration("duration", d))
}

func (l *Logger) PlaySound(sound alarmclock.Sound) {
	l.logger.Info("play sound", slog.String("sound", string(sound)))
}

// Notify logs a fired alarm. It has the shape expected by
// alarmclock.Manager.SetFireNotifier.
func (l *Logger) Notify(a alarmclock.Alarm) {
	l.logger.Info("alarm fired",
		slog.Int("alarm_id", a.ID),
		slog.String("name", a.Label()),
		slog.Time("fire_time", a.FireTime),
		slog.Bool("repeat", a.Repeat),
	)
}
