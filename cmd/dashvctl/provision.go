package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dashv/internal/adapter"
	"dashv/internal/domain"
)

// envSSHPassword keeps the password out of the process list
const envSSHPassword = "DASHV_SSH_PASSWORD"

type provisionOptions struct {
	target         adapter.SSHTarget
	account        string
	tokenName      string
	connectTimeout time.Duration
	commandTimeout time.Duration
}

func provisionCmd() *cobra.Command {
	var opts provisionOptions

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a Proxmox API token over SSH and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.target.Password == "" {
				opts.target.Password = os.Getenv(envSSHPassword)
			}
			if opts.target.Host == "" || opts.target.Username == "" || opts.target.Password == "" {
				return fmt.Errorf("--host, --user and a password (--password or $%s) are required", envSSHPassword)
			}

			runner := adapter.NewSSHRunner(opts.connectTimeout, opts.commandTimeout)
			cred, err := adapter.NewProvisioner(runner).Provision(cmd.Context(), opts.target, opts.account, opts.tokenName)
			if err != nil {
				return fmt.Errorf("provision: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token id:  %s\n", cred.TokenID())
			fmt.Fprintf(out, "api token: %s\n", cred.APIToken())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.target.Host, "host", "", "Proxmox host to SSH into")
	f.IntVar(&opts.target.Port, "port", 22, "SSH port")
	f.StringVarP(&opts.target.Username, "user", "u", "root", "SSH user")
	f.StringVarP(&opts.target.Password, "password", "p", "", "SSH password (prefer $"+envSSHPassword+")")
	f.StringVar(&opts.account, "account", domain.DefaultAccount, "account the token is created for")
	f.StringVar(&opts.tokenName, "token-name", domain.DefaultTokenName, "token name")
	f.DurationVar(&opts.connectTimeout, "connect-timeout", 10*time.Second, "SSH connect timeout")
	f.DurationVar(&opts.commandTimeout, "command-timeout", 30*time.Second, "per-command timeout")

	return cmd
}
