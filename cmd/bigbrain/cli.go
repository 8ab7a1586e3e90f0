package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/pretty"
	"golang.org/x/term"

	"github.com/slekup/big-brain/internal/app"
	"github.com/slekup/big-brain/internal/config"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/schema"
	"github.com/slekup/big-brain/internal/record"
)

// bareField is the record path a bare document is wrapped under.
const bareField = "doc"

// cli holds the parsed command line. Field names follow docopt's keys.
type cli struct {
	Validate bool `docopt:"validate"`
	Preview  bool `docopt:"preview"`
	Apply    bool `docopt:"apply"`
	Script   bool `docopt:"script"`
	Catalog  bool `docopt:"catalog"`
	Help     bool `docopt:"--help"`
	Version  bool `docopt:"--version"`

	File     string   `docopt:"<file>"`
	Command  []string `docopt:"<command>"`
	Macro    string   `docopt:"<macro>"`
	Config   string   `docopt:"--config"`
	Field    string   `docopt:"--field"`
	LogLevel string   `docopt:"--log-level"`
	Drop     bool     `docopt:"--drop"`
	Text     bool     `docopt:"--text"`
	Out      string   `docopt:"--out"`
	DryRun   bool     `docopt:"--dry-run"`

	stdout io.Writer
	stderr io.Writer
}

func (c *cli) newApp() (*app.Application, error) {
	opts := app.Options{ConfigPath: c.Config, LogLevel: c.LogLevel, LogOutput: c.stderr}
	if c.Config == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		opts.Config = cfg
	}
	return app.New(opts)
}

// open loads <file> into a as a record and returns its ID and the field
// holding the document.
func (c *cli) open(a *app.Application) (id, field string, err error) {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return "", "", err
	}
	if c.Field == "" {
		wrapped, err := record.Parse([]byte("{}"))
		if err != nil {
			return "", "", err
		}
		if wrapped, err = wrapped.SetFieldJSON(bareField, data); err != nil {
			return "", "", err
		}
		return c.File, bareField, a.AddRecord(c.File, wrapped.Bytes())
	}
	id, err = a.LoadRecord(c.File)
	return id, c.Field, err
}

// result returns what apply and script print: the document for a bare
// file, the whole record otherwise.
func (c *cli) result(a *app.Application, id, field string) ([]byte, error) {
	rec, err := a.Records().Get(id)
	if err != nil {
		return nil, err
	}
	if field == bareField && c.Field == "" {
		return rec.FieldJSON(bareField)
	}
	return rec.Bytes(), nil
}

func (c *cli) validate() error {
	a, err := c.newApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	id, field, err := c.open(a)
	if err != nil {
		return err
	}
	rec, _ := a.Records().Get(id)
	data, err := rec.FieldJSON(field)
	if err != nil {
		return err
	}

	policy := schema.PolicyReject
	if c.Drop {
		policy = schema.PolicyDrop
	}
	doc, warnings, err := schema.NewLoader(a.Catalog(), policy).Load(data)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(c.stdout, "dropped %s: %s\n", w.Path, w.Message)
	}

	fc := a.Config().Field(field)
	g := guard.New(fc.Limit, a.Config().Counting())
	count := g.Count(doc)
	fmt.Fprintf(c.stdout, "ok: %d characters, limit %d\n", count, g.Limit)
	if count > g.Limit {
		return fmt.Errorf("%w: %d over", guard.ErrLimitExceeded, count-g.Limit)
	}
	return nil
}

func (c *cli) preview() error {
	a, err := c.newApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	id, field, err := c.open(a)
	if err != nil {
		return err
	}
	rec, _ := a.Records().Get(id)
	data, err := rec.FieldJSON(field)
	if err != nil {
		return err
	}
	p := a.NewPreview(field)
	if err := p.SetContent(data); err != nil {
		return err
	}
	if c.Text {
		fmt.Fprintln(c.stdout, p.Text())
		return nil
	}
	html, err := p.HTML()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, html)
	return nil
}

func (c *cli) apply() error {
	invs, err := parseInvocations(c.Command)
	if err != nil {
		return err
	}
	a, err := c.newApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	id, field, err := c.open(a)
	if err != nil {
		return err
	}
	s, err := a.Open(id, field)
	if err != nil {
		return err
	}
	if err := s.Run(invs...); err != nil {
		return err
	}
	return c.write(a, id, field)
}

func (c *cli) script() error {
	source, err := os.ReadFile(c.Macro)
	if err != nil {
		return err
	}
	a, err := c.newApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	id, field, err := c.open(a)
	if err != nil {
		return err
	}
	s, err := a.Open(id, field)
	if err != nil {
		return err
	}
	ed, err := s.Editor()
	if err != nil {
		return err
	}

	ctx := context.Background()
	run := a.Scripts().Run
	if c.DryRun {
		run = a.Scripts().DryRun
	}
	res, err := run(ctx, ed, c.Macro, string(source))
	if err != nil {
		return err
	}
	for _, line := range res.Output {
		fmt.Fprintln(c.stderr, line)
	}
	if c.DryRun {
		for _, inv := range res.Commands {
			fmt.Fprintf(c.stdout, "%s %v\n", inv.Name, inv.Params)
		}
		return nil
	}
	return c.write(a, id, field)
}

// write prints the result or writes it to --out, or back to the record
// file when --field and no --out are given.
func (c *cli) write(a *app.Application, id, field string) error {
	if c.Out == "" && c.Field != "" {
		return a.SaveRecord(id)
	}
	data, err := c.result(a, id, field)
	if err != nil {
		return err
	}
	data = pretty.Pretty(data)
	if c.Out != "" {
		return os.WriteFile(c.Out, data, 0o644)
	}
	if isTerminal(c.stdout) {
		data = pretty.Color(data, nil)
	}
	_, err = c.stdout.Write(data)
	return err
}

func (c *cli) catalog() error {
	a, err := c.newApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	cat := a.Catalog()
	fmt.Fprintln(c.stdout, "nodes:")
	for _, t := range cat.Nodes() {
		fmt.Fprintf(c.stdout, "  %-16s groups=%s commands=%s\n",
			t.Name, strings.Join(t.Groups, ","), strings.Join(t.Commands, ","))
	}
	fmt.Fprintln(c.stdout, "marks:")
	for _, m := range cat.Marks() {
		fmt.Fprintf(c.stdout, "  %-16s commands=%s\n", m.Name, strings.Join(m.Commands, ","))
	}
	return nil
}

// parseInvocations reads name or name:{json params} arguments.
func parseInvocations(args []string) ([]command.Invocation, error) {
	invs := make([]command.Invocation, 0, len(args))
	for _, arg := range args {
		name, raw, hasParams := strings.Cut(arg, ":")
		if name == "" {
			return nil, errors.New("empty command name")
		}
		var params command.Params
		if hasParams {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return nil, fmt.Errorf("params of %s: %w", name, err)
			}
		}
		invs = append(invs, command.Invoke(name, params))
	}
	return invs, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
