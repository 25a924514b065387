// Copyright (c) 2023 BVK Chaitanya

// Package daemonize respawns the detector as a background process.
package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// EnvKey identifies the background process. When set, it holds the parent
// process id.
const EnvKey = "TRIARB_DAEMONIZE"

type Options struct {
	// SyslogTag is used for the standard library logger in the background
	// process.
	SyslogTag string

	// CheckInterval is the delay between readiness checks.
	CheckInterval time.Duration
}

func (v *Options) setDefaults() {
	if len(v.SyslogTag) == 0 {
		v.SyslogTag = "triarb"
	}
	if v.CheckInterval <= 0 {
		v.CheckInterval = time.Second
	}
}

// IsChild returns true in the background process.
func IsChild() bool {
	return len(os.Getenv(EnvKey)) != 0
}

// ParentPID returns the pid of the process that started the background
// process, or zero.
func ParentPID() int {
	pid, _ := strconv.Atoi(os.Getenv(EnvKey))
	return pid
}

// Daemonize restarts the current program in the background with the same
// arguments and environment. It must be called before opening databases or
// starting servers.
//
// In the parent process, check is polled till the background process reports
// ready or dies; parent process exits on success. In the background process,
// Daemonize returns nil after detaching from the terminal session.
func Daemonize(ctx context.Context, opts *Options, check func(context.Context) error) error {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	if !IsChild() {
		if err := startChild(ctx, opts, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := detach(opts); err != nil {
		os.Exit(1)
	}
	return nil
}

func childEnv(environ []string, ppid int) []string {
	env := slices.DeleteFunc(slices.Clone(environ), func(s string) bool {
		return strings.HasPrefix(s, EnvKey+"=")
	})
	return append(env, fmt.Sprintf("%s=%d", EnvKey, ppid))
}

func startChild(ctx context.Context, opts *Options, check func(context.Context) error) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	// SIGCHLD is delivered when the background process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	attr := &os.ProcAttr{
		Dir:   wd,
		Env:   childEnv(os.Environ(), os.Getpid()),
		Files: []*os.File{devnull, devnull, devnull},
	}
	proc, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start background process: %w", err)
	}

	if check != nil {
		for ctx.Err() == nil {
			time.Sleep(opts.CheckInterval)
			if err := check(ctx); err != nil {
				slog.WarnContext(ctx, "background process is not ready yet", "pid", proc.Pid, "err", err)
				continue
			}
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("background process %d did not initialize: %w", proc.Pid, err)
	}
	slog.Info("started background process", "pid", proc.Pid)
	return nil
}

func detach(opts *Options) error {
	syslogger, err := syslog.New(syslog.LOG_INFO, opts.SyslogTag)
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
