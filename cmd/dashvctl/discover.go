package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dashv/internal/adapter"
	"dashv/internal/codec"
	"dashv/internal/domain"
	"dashv/internal/service"
)

type discoverOptions struct {
	mock        bool
	host        string
	user        string
	token       string
	tokenID     string
	verifyTLS   bool
	timeout     time.Duration
	concurrency int
	catalogPath string
	format      string
}

func discoverCmd() *cobra.Command {
	var opts discoverOptions

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery cycle and print the services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exporter, err := codec.ExporterFor(opts.format)
			if err != nil {
				return err
			}
			catalog, err := codec.LoadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}

			var platform adapter.PlatformAPI
			if opts.mock {
				platform = adapter.NewMockPlatform()
			} else {
				if opts.host == "" || opts.user == "" || opts.token == "" {
					return fmt.Errorf("--host, --user and --token are required without --mock")
				}
				host, port := domain.SplitHostPort(opts.host, domain.DefaultAPIPort)
				platform = adapter.NewClient(adapter.ProxmoxConfig{
					Host:      host,
					Port:      port,
					APIToken:  domain.BuildAPIToken(opts.user, opts.token, opts.tokenID),
					Timeout:   opts.timeout,
					VerifyTLS: opts.verifyTLS,
				})
			}

			discovery := service.NewDiscovery(service.NewMapper(catalog), nil, nil, service.DiscoveryConfig{
				Concurrency: opts.concurrency,
			})
			discovery.Attach(
				adapter.NewLister(platform, opts.concurrency),
				adapter.NewResolver(platform, opts.timeout),
			)
			if _, err := discovery.Trigger(cmd.Context()); err != nil {
				return fmt.Errorf("discover: %w", err)
			}

			return exporter.Export(discovery.Services(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.mock, "mock", false, "use the built-in mock cluster")
	f.StringVar(&opts.host, "host", "", "Proxmox API host[:port]")
	f.StringVar(&opts.user, "user", "", "API user, e.g. root@pam or root@pam!token")
	f.StringVar(&opts.token, "token", "", "API token secret or full user!id=secret token")
	f.StringVar(&opts.tokenID, "token-id", "", "token id when --token is a bare secret")
	f.BoolVar(&opts.verifyTLS, "verify-tls", false, "verify the API certificate")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	f.IntVar(&opts.concurrency, "concurrency", 4, "parallel lookups")
	f.StringVar(&opts.catalogPath, "catalog", "", "port/icon catalog YAML")
	f.StringVarP(&opts.format, "output", "o", "yaml", "output format: yaml or json")

	return cmd
}
