package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

// adminOrigin marks signals published by this CLI so no shell treats them as its own.
const adminOrigin = "mmk-shell-admin"

type endSessionOptions struct {
	Yes bool
}

func parseEndSessionFlags(args []string) (endSessionOptions, error) {
	fs := pflag.NewFlagSet("end-session", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts endSessionOptions
	fs.BoolVarP(&opts.Yes, "yes", "y", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return endSessionOptions{}, err
	}
	return opts, nil
}

func runSessionStatus(cmdCtx *commandContext, args []string) error {
	fs := pflag.NewFlagSet("session-status", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	shared, release, err := cmdCtx.shared()
	if err != nil {
		return err
	}
	defer release()

	authorized, err := shared.IsAuthorized(cmdCtx.Ctx)
	if err != nil {
		return fmt.Errorf("read session flag: %w", err)
	}
	state := "not set"
	if authorized {
		state = "set"
	}
	return writef(cmdCtx.Out, "Shared session flag %q: %s\n", cmdCtx.Config.Session.FlagKey, state)
}

func runEndSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseEndSessionFlags(args)
	if err != nil {
		return err
	}
	if !opts.Yes {
		prompt := fmt.Sprintf("About to end the shared session on channel %q; every shell will reload.", cmdCtx.Config.Session.Channel)
		if err := confirmAction(cmdCtx, prompt); err != nil {
			return err
		}
	}

	shared, release, err := cmdCtx.shared()
	if err != nil {
		return err
	}
	defer release()

	if err := shared.ClearAuthorized(cmdCtx.Ctx); err != nil {
		return fmt.Errorf("clear session flag: %w", err)
	}
	sig := domainauth.SessionSignal{Type: domainauth.SignalSessionEnded, Origin: adminOrigin, At: time.Now().UTC()}
	if err := shared.Publish(cmdCtx.Ctx, sig); err != nil {
		return fmt.Errorf("publish session ended: %w", err)
	}
	cmdCtx.Logger.InfoContext(cmdCtx.Ctx, "shared session ended", "channel", cmdCtx.Config.Session.Channel)
	return writef(cmdCtx.Out, "Session ended; shell instances will reload.\n")
}
