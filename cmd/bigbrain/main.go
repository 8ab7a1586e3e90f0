// Package main is the bigbrain command: validate, render and edit rich-text
// documents from the shell.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

const usage = `Big Brain rich-text tool.

A <file> holds one document, or with --field a JSON record whose document
sits at the given path (gjson syntax, e.g. fields.answer).

Usage:
    bigbrain validate [options] [--drop] <file>
    bigbrain preview [options] [--text] <file>
    bigbrain apply [options] [--out=<path>] <file> <command>...
    bigbrain script [options] [--dry-run] [--out=<path>] <file> <macro>
    bigbrain catalog [options]
    bigbrain -h | --help
    bigbrain --version

Commands are written name or name:params, e.g. toggleBold or
'setHeading:{"level":2}'. They run as one chain: all or nothing.

Options:
    -h --help             Show this screen.
    --version             Show version.
    --config=<path>       Configuration file [default: ].
    --field=<path>        Record path of the document [default: ].
    --log-level=<level>   debug, info, warn or error [default: warn].
    --drop                Drop invalid content with warnings instead of failing.
    --text                Print plain text instead of HTML.
    --out=<path>          Write the result here instead of stdout [default: ].
    --dry-run             Report what a macro would run without committing.`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler, SkipHelpFlags: true}
	opts, err := parser.ParseArgs(usage, args, version)
	if err != nil {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	if help, _ := opts.Bool("--help"); help {
		fmt.Fprintln(stdout, usage)
		return 0
	}
	if v, _ := opts.Bool("--version"); v {
		fmt.Fprintf(stdout, "bigbrain %s (%s)\n", version, commit)
		return 0
	}

	var c cli
	if err := opts.Bind(&c); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	c.stdout, c.stderr = stdout, stderr

	commands := []struct {
		enabled bool
		fn      func() error
	}{
		{c.Validate, c.validate},
		{c.Preview, c.preview},
		{c.Apply, c.apply},
		{c.Script, c.script},
		{c.Catalog, c.catalog},
	}
	for _, cmd := range commands {
		if !cmd.enabled {
			continue
		}
		if err := cmd.fn(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stderr, usage)
	return 2
}
