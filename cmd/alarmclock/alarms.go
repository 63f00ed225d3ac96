package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"bsid.es/alarmclock"
	"github.com/spf13/cobra"
)

// AddOptions holds the flags of the add command.
type AddOptions struct {
	ID      int
	In      time.Duration
	At      string
	Repeat  bool
	Every   time.Duration
	Name    string
	Sound   string
	Request string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an alarm",
		Long: `Add an alarm to the store.

The fire time comes from exactly one of --in, --at or --request. --at takes
RFC 3339 or HH:MM (next occurrence in the configured location). --request
takes the JSON arguments of a voice command, e.g. '{"delay":60}'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			loc, err := s.cfg.TimeLocation()
			if err != nil {
				return err
			}
			alarm, err := opts.alarm(time.Now(), loc)
			if err != nil {
				return err
			}
			id, err := s.manager.Add(alarm)
			if err != nil {
				return err
			}
			stored, _ := s.manager.Get(id)
			return printAlarms(cmd.OutOrStdout(), rootOpts.Format, []alarmclock.Alarm{stored})
		},
	}

	cmd.Flags().IntVar(&opts.ID, "id", 0, "alarm id (allocated when 0)")
	cmd.Flags().DurationVar(&opts.In, "in", 0, "fire after this delay")
	cmd.Flags().StringVar(&opts.At, "at", "", "fire at this time (RFC 3339 or HH:MM)")
	cmd.Flags().BoolVar(&opts.Repeat, "repeat", false, "repeat the alarm")
	cmd.Flags().DurationVar(&opts.Every, "every", 0, "repeat interval, whole minutes")
	cmd.Flags().StringVar(&opts.Name, "name", "", "alarm label")
	cmd.Flags().StringVar(&opts.Sound, "sound", string(alarmclock.DefaultSound), "alarm sound (ALARM1|ALARM2|ALARM3)")
	cmd.Flags().StringVar(&opts.Request, "request", "", "voice command arguments as JSON")

	return cmd
}

func (o *AddOptions) alarm(now time.Time, loc *time.Location) (alarmclock.Alarm, error) {
	sources := 0
	for _, set := range []bool{o.In != 0, o.At != "", o.Request != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return alarmclock.Alarm{}, alarmclock.Errorf(alarmclock.ErrInvalid, "exactly one of --in, --at or --request is required")
	}

	var a alarmclock.Alarm
	switch {
	case o.Request != "":
		req, err := alarmclock.ParseRequest([]byte(o.Request))
		if err != nil {
			return alarmclock.Alarm{}, err
		}
		a = req.Alarm(now, loc)
	case o.In != 0:
		if o.In < 0 {
			return alarmclock.Alarm{}, alarmclock.Errorf(alarmclock.ErrInvalid, "--in must be positive")
		}
		a = alarmclock.Alarm{FireTime: now.Add(o.In), Repeat: o.Repeat, Interval: o.Every}
	default:
		at, err := parseAt(o.At, now, loc)
		if err != nil {
			return alarmclock.Alarm{}, err
		}
		a = alarmclock.Alarm{FireTime: at, Repeat: o.Repeat, Interval: o.Every}
	}
	a.ID = o.ID
	a.Name = o.Name
	a.Sound = alarmclock.Sound(o.Sound)
	return a, nil
}

func parseAt(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	clock, err := time.ParseInLocation("15:04", s, loc)
	if err != nil {
		return time.Time{}, alarmclock.Errorf(alarmclock.ErrInvalid, "--at %q is neither RFC 3339 nor HH:MM", s)
	}
	hour, minute := clock.Hour(), clock.Minute()
	req := alarmclock.ScheduleRequest{Trigger: alarmclock.TriggerTimeOfDay, Hour: &hour, Minute: &minute}
	return req.Alarm(now, loc).FireTime, nil
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alarms ordered by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			return printAlarms(cmd.OutOrStdout(), rootOpts.Format, s.manager.List())
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID...",
		Short: "Remove alarms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil {
					return alarmclock.Errorf(alarmclock.ErrInvalid, "invalid alarm id %q", arg)
				}
				ids = append(ids, id)
			}

			s, err := rootOpts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range ids {
				if !s.manager.Remove(id) {
					return alarmclock.Errorf(alarmclock.ErrNotFound, "alarm %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
			}
			return nil
		},
	}
}

// NewValidateCommand creates the command that checks voice command arguments.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate JSON",
		Short: "Validate voice command arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := alarmclock.ParseRequest([]byte(args[0]))
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), req)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%s)\n", req.ID, req.Trigger)
			return nil
		},
	}
}

func printAlarms(w io.Writer, format string, alarms []alarmclock.Alarm) error {
	if format == "json" {
		return writeJSON(w, alarms)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIRE TIME\tREPEAT\tSOUND\tNAME")
	for _, a := range alarms {
		repeat := "-"
		if a.Repeat {
			repeat = a.Interval.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.FireTime.Format(time.RFC3339), repeat, a.Sound, a.Label())
	}
	return tw.Flush()
}
