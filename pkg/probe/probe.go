// Package probe runs a one-shot, non-prompting check of the configured
// wallet provider for the -test mode.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"walletview/pkg/models"
	"walletview/pkg/provider"
	"walletview/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// Options configures a probe run.
type Options struct {
	ProviderURL     string
	ExpectedWallet  string
	BalanceDecimals int
}

// Run detects the provider and reads its state without asking for
// authorization. Read failures are collected in the report.
func Run(ctx context.Context, d provider.Detector, opts Options) models.ProbeReport {
	report := models.ProbeReport{ProviderURL: opts.ProviderURL}

	p, err := d.Detect(ctx)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	defer p.Close()

	report.Found = true
	report.ClientVersion = p.ClientVersion()
	report.WalletIdentified = provider.Identifies(p.ClientVersion(), opts.ExpectedWallet)

	var accounts []string
	var chainID string
	var accErr, chainErr error
	var g errgroup.Group
	g.Go(func() error {
		accounts, accErr = p.Accounts(ctx)
		return nil
	})
	g.Go(func() error {
		chainID, chainErr = p.ChainID(ctx)
		return nil
	})
	_ = g.Wait()

	if chainErr != nil {
		report.Errors = append(report.Errors, chainErr.Error())
	} else {
		report.ChainID = chainID
		report.NumericChainID = utils.FormatChainAsNum(chainID)
	}
	if accErr != nil {
		report.Errors = append(report.Errors, accErr.Error())
		return report
	}
	report.Accounts = accounts
	if len(accounts) == 0 {
		return report
	}

	balance, err := p.Balance(ctx, accounts[0])
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Balance = utils.FormatBalance(balance, opts.BalanceDecimals)
	return report
}

// Print writes the report as indented JSON or as human readable lines.
func Print(w io.Writer, r models.ProbeReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Testing provider at: %s\n", r.ProviderURL)
	if !r.Found {
		b.WriteString("Injected Provider DOES NOT Exist\n")
	} else {
		b.WriteString("Injected Provider DOES Exist\n")
		if r.ClientVersion != "" {
			fmt.Fprintf(&b, "  Client:          %s\n", r.ClientVersion)
		}
		fmt.Fprintf(&b, "  Expected wallet: %t\n", r.WalletIdentified)
		if r.ChainID != "" {
			fmt.Fprintf(&b, "  ChainId:         %s (%s)\n", r.ChainID, r.NumericChainID)
		}
		if len(r.Accounts) == 0 {
			b.WriteString("  No authorized accounts\n")
		} else {
			fmt.Fprintf(&b, "  Account:         %s\n", r.Accounts[0])
			if r.Balance != "" {
				fmt.Fprintf(&b, "  Balance:         %s\n", utils.AddCommas(r.Balance))
			}
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "Error: %s\n", e)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
