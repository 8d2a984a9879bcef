// Package main runs a course on simulated hardware and checks run configurations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/coursebot/config"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/observer"
	"go.viam.com/coursebot/robot"
	"go.viam.com/coursebot/robot/fake"
)

const (
	// Flags.
	flagConfig    = "config"
	flagDebug     = "debug"
	flagAutostart = "autostart"
	flagTicks     = "ticks"
	flagTimeout   = "timeout"
	flagOutput    = "output"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "coursebot",
		Usage: "run the line course robot",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a course on simulated hardware",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`; defaults are used when omitted",
					},
					&cli.StringFlag{
						Name:  flagAutostart,
						Usage: "send the start command for `SIDE` (L or R) instead of waiting for the touch sensor",
					},
					&cli.Int64Flag{
						Name:  flagTicks,
						Usage: "stop the run after `N` ticks; zero does not limit the run",
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Usage: "stop the run after `DURATION`; zero runs until the back button or an interrupt",
					},
				},
				Action: runAction,
			},
			{
				Name:  "validate",
				Usage: "check a configuration and the course table of its side",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Usage:    "load configuration from `FILE`",
						Required: true,
					},
				},
				Action: validateAction,
			},
			{
				Name:  "default-config",
				Usage: "write the default configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    "write to `FILE`",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					return config.Write(c.String(flagOutput), config.Default())
				},
			},
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(path)
}

func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewLogger("coursebot", "run", uuid.NewString())
	logger.SetLevel(level)
	return logger, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	autostart := c.String(flagAutostart)
	if autostart != "" {
		side, err := course.ParseSide(autostart)
		if err != nil {
			return errors.Wrapf(err, "invalid --%s", flagAutostart)
		}
		cfg.Course = side.String()
	}
	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration(flagTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	hw := fake.NewHardware(logger.Sublogger("hardware"))
	simCtx, simCancel := context.WithCancel(ctx)
	hw.Start(simCtx, cfg.Observer.Period)
	defer func() {
		simCancel()
		hw.Stop()
	}()

	r, err := robot.New(ctx, cfg, hw.Observer(), clock.New(), logger)
	if err != nil {
		return err
	}
	defer func() {
		// ctx may already be done here; the motors must still stop
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.Close(closeCtx); err != nil {
			logger.Errorw("failed to close robot", "error", err)
		}
	}()

	if limit := c.Int64(flagTicks); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		goutils.ManagedGo(func() {
			for r.Ticks() < limit {
				if !goutils.SelectContextOrWait(ctx, cfg.Observer.Period) {
					return
				}
			}
			logger.Infow("tick limit reached", "ticks", limit)
			cancel()
		}, nil)
	}

	if autostart != "" {
		r.Start(ctx)
	}
	logger.Infow("waiting for the run", "course", cfg.Course, "autostart", autostart != "")
	err = r.Run(ctx)
	logger.Infow("run over", "state", r.State(), "ticks", r.Ticks(), "frame", r.Frame())
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func validateAction(c *cli.Context) error {
	path := c.String(flagConfig)
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	side, err := cfg.Side()
	if err != nil {
		return err
	}
	if err := course.Validate(observer.CourseGraph(), course.Actions(side)); err != nil {
		return errors.Wrapf(err, "course table for side %s", side)
	}
	fmt.Fprintf(c.App.Writer, "%s: config and %s course table are valid\n", path, side)
	return nil
}
