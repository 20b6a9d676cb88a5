// doppel inspects interfaces and host settings used with mock endpoints.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/clydemeng/doppelganger/core"
	"github.com/clydemeng/doppelganger/core/vm"
	"github.com/clydemeng/doppelganger/mock"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:    "verbosity",
		Usage:   "logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value:   3,
		EnvVars: []string{"DOPPEL_VERBOSITY"},
	}
	abiFlag = &cli.PathFlag{
		Name:     "abi",
		Usage:    "JSON interface description `file`",
		Required: true,
	}
	configFlag = &cli.PathFlag{
		Name:  "config",
		Usage: "TOML host configuration `file`",
	}
	adminFlag = &cli.BoolFlag{
		Name:  "admin",
		Usage: "also list the admin entry points of mock endpoints",
	}
)

var commands = []*cli.Command{
	{
		Name:   "selectors",
		Usage:  "print the functions of an interface with the selectors a mock dispatches on",
		Flags:  []cli.Flag{abiFlag, adminFlag},
		Action: selectors,
	},
	{
		Name:   "dumpconfig",
		Usage:  "print the host configuration in TOML",
		Flags:  []cli.Flag{configFlag},
		Action: dumpConfig,
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "doppel",
		Usage:    "mock endpoint toolbox",
		Flags:    []cli.Flag{verbosityFlag},
		Commands: commands,
		Before:   setupLogging,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	level := log.FromLegacyLevel(c.Int(verbosityFlag.Name))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true)))
	return nil
}

func selectors(c *cli.Context) error {
	blob, err := os.ReadFile(c.Path(abiFlag.Name))
	if err != nil {
		return err
	}
	parsed, err := mock.ParseABI(string(blob))
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.Path(abiFlag.Name), err)
	}
	log.Debug("Loaded interface", "file", c.Path(abiFlag.Name), "functions", len(parsed.Methods))

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Name", "Signature", "Selector", "Outputs"})
	for _, row := range methodRows(parsed) {
		table.Append(row)
	}
	if c.Bool(adminFlag.Name) {
		for _, row := range methodRows(&vm.DoppelgangerABI) {
			table.Append(row)
		}
	}
	if parsed.HasReceive() {
		table.Append([]string{mock.ReceiveName, "", "", ""})
	}
	table.Render()
	return nil
}

// methodRows lists the functions of parsed sorted by signature.
func methodRows(parsed *abi.ABI) [][]string {
	rows := make([][]string, 0, len(parsed.Methods))
	for _, m := range parsed.Methods {
		outs := make([]string, len(m.Outputs))
		for i, o := range m.Outputs {
			outs[i] = o.Type.String()
		}
		rows = append(rows, []string{m.Name, m.Sig, hexutil.Encode(m.ID), strings.Join(outs, ",")})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][1] < rows[j][1] })
	return rows
}

func dumpConfig(c *cli.Context) error {
	cfg := core.DefaultConfig
	if file := c.Path(configFlag.Name); file != "" {
		if err := core.LoadConfig(file, &cfg); err != nil {
			return err
		}
	}
	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(out)
	return err
}
