package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"bsid.es/alarmclock"
	"bsid.es/alarmclock/config"
	"bsid.es/alarmclock/sqlite"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	StorePath  string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the alarmclock CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "alarmclock",
		Short:         "Persistent alarm clock",
		Long:          "Schedules alarms that survive restarts and fire through a single shared timer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", "database path (overrides store.path)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return config.Config{}, err
		}
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	return cfg, nil
}

// session is an opened store with a Manager on top.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	settings *sqlite.Settings
	manager  *alarmclock.Manager
}

// openSession opens the configured store. The Manager gets the extra
// options; without WithTimer it never fires, which suits one-shot commands.
func (o *RootOptions) openSession(logOut io.Writer, extra ...alarmclock.Option) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(logOut)
	if err != nil {
		return nil, err
	}
	settings, err := sqlite.Open(cfg.Store.Path, cfg.Store.Namespace)
	if err != nil {
		return nil, err
	}
	opts := append([]alarmclock.Option{
		alarmclock.WithLogger(logger),
		alarmclock.WithNotificationDuration(cfg.Notification.Duration),
	}, extra...)
	store := alarmclock.NewStore(settings, logger)
	return &session{
		cfg:      cfg,
		logger:   logger,
		settings: settings,
		manager:  alarmclock.NewManager(store, opts...),
	}, nil
}

func (s *session) Close() error {
	if err := s.manager.Close(); err != nil {
		s.logger.Warn("close manager", slog.String("error", err.Error()))
	}
	return s.settings.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
