package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/service"
)

type fetchConfigOptions struct {
	Release config.Release
	BaseURL string
	Raw     bool
}

func parseFetchConfigFlags(defaults config.AppConfig, args []string) (fetchConfigOptions, error) {
	fs := pflag.NewFlagSet("fetch-config", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		release string
		opts    fetchConfigOptions
	)
	fs.StringVar(&release, "release", string(defaults.Release()), "Document release: production or development")
	fs.StringVar(&opts.BaseURL, "base-url", defaults.Shell.ConfigBaseURL, "Origin serving the configuration assets")
	fs.BoolVar(&opts.Raw, "raw", false, "Print the parsed document as JSON")

	if err := fs.Parse(args); err != nil {
		return fetchConfigOptions{}, err
	}

	switch r := config.Release(strings.ToLower(strings.TrimSpace(release))); r {
	case config.ReleaseProduction, config.ReleaseDevelopment:
		opts.Release = r
	default:
		return fetchConfigOptions{}, fmt.Errorf("invalid --release %q (valid options: production, development)", release)
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		return fetchConfigOptions{}, fmt.Errorf("--base-url is required")
	}
	return opts, nil
}

func runFetchConfig(cmdCtx *commandContext, args []string) error {
	opts, err := parseFetchConfigFlags(cmdCtx.Config, args)
	if err != nil {
		return err
	}

	shell := cmdCtx.Config.Shell
	shell.ConfigBaseURL = opts.BaseURL
	svc := service.NewConfigService(service.ConfigServiceOptions{
		URL:        shell.DocumentURL(opts.Release),
		HTTPClient: &http.Client{Timeout: shell.ConfigTimeout},
		Logger:     cmdCtx.Logger,
	})
	if err := svc.Load(cmdCtx.Ctx); err != nil {
		return err
	}

	if opts.Raw {
		enc := json.NewEncoder(cmdCtx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(svc.Document())
	}
	return printEffectiveConfig(cmdCtx, svc)
}

func printEffectiveConfig(cmdCtx *commandContext, svc *service.ConfigService) error {
	auth := svc.Auth()
	allowed := "-"
	if len(auth.AllowedURLs) > 0 {
		allowed = strings.Join(auth.AllowedURLs, ", ")
	}
	rows := [][2]string{
		{"Document", svc.URL()},
		{"App name", svc.AppName()},
		{"App version", svc.AppVersion()},
		{"API URL", svc.APIURL()},
		{"Log level", fmt.Sprintf("%s (%d)", svc.LogLevel(), svc.LogLevel())},
		{"Auth enabled", fmt.Sprintf("%t", auth.Enabled)},
		{"Issuer", auth.Issuer},
		{"Client ID", auth.ClientID},
		{"Allowed URLs", allowed},
	}

	tw := tabwriter.NewWriter(cmdCtx.Out, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
