package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v2"

	"github.com/GriffinCanCode/danwiki/internal/domain/fetch"
	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/server"
)

func requireArg(c *cli.Context, usage string) (string, error) {
	if c.NArg() < 1 || strings.TrimSpace(c.Args().First()) == "" {
		return "", fmt.Errorf("usage: danwiki %s %s", c.Command.Name, usage)
	}
	return strings.Join(c.Args().Slice(), " "), nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func fetchCommand(c *cli.Context) error {
	tag, err := requireArg(c, "<tag|page-url>")
	if err != nil {
		return err
	}
	// a suggested page printed by an earlier fetch can be passed back as-is
	if fromURL := suggest.TagFromURL(tag); fromURL != "" {
		tag = fromURL
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	req, err := a.Fetcher.Fetch(ctx, tag)
	if err != nil {
		return err
	}
	if req.Cached {
		return printRecord(c, *req.Record)
	}

	for {
		select {
		case ev, ok := <-a.Fetcher.Events():
			if !ok {
				return fetch.ErrClosed
			}
			if ev.ID != req.ID {
				continue
			}
			if !ev.State.Terminal() {
				fmt.Fprintln(c.App.ErrWriter, ev.Message)
				continue
			}
			if ev.State == fetch.StateNotFound || ev.Record == nil {
				return notFound(c, ev)
			}
			if ev.Message != "" {
				fmt.Fprintln(c.App.ErrWriter, ev.Message)
			}
			return printRecord(c, *ev.Record)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func notFound(c *cli.Context, ev fetch.Event) error {
	msg := ev.Message
	if ev.Suggestion != nil {
		msg += "\nsuggested page: " + ev.Suggestion.URL
	}
	return cli.Exit(msg, 2)
}

func searchCommand(c *cli.Context) error {
	query, err := requireArg(c, "<query>")
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Metrics.IncSearches()
	res := a.Store.Lookup(query)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res.Matches)
	}

	if len(res.Matches) == 0 {
		fmt.Fprintf(c.App.Writer, "no cached tags match %q; try: danwiki fetch %s\n", query, tags.NormalizeTag(query))
		return nil
	}
	if res.Exact != nil {
		return writeRecord(c.App.Writer, *res.Exact)
	}
	for _, rec := range res.Matches {
		line := rec.Tag
		if rec.TagTranslation != "" {
			line += " (" + rec.TagTranslation + ")"
		}
		fmt.Fprintln(c.App.Writer, line)
	}
	return nil
}

func showCommand(c *cli.Context) error {
	tag, err := requireArg(c, "<tag>")
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Store.Get(tag)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", tags.NormalizeTag(tag), err), 2)
	}
	return printRecord(c, rec)
}

func translateCommand(c *cli.Context) error {
	tag, err := requireArg(c, "[--tag-translation T] [--meaning-translation M] <tag>")
	if err != nil {
		return err
	}
	if !c.IsSet("tag-translation") && !c.IsSet("meaning-translation") {
		return errors.New("nothing to update: pass --tag-translation and/or --meaning-translation")
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Store.Get(tag)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", tags.NormalizeTag(tag), err), 2)
	}

	tagTranslation, meaningTranslation := rec.TagTranslation, rec.MeaningTranslation
	if c.IsSet("tag-translation") {
		tagTranslation = c.String("tag-translation")
	}
	if c.IsSet("meaning-translation") {
		meaningTranslation = c.String("meaning-translation")
	}
	if err := a.Store.UpdateTranslation(rec.Tag, tagTranslation, meaningTranslation); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "updated %s\n", rec.Tag)
	return nil
}

func suggestCommand(c *cli.Context) error {
	tag, err := requireArg(c, "<tag>")
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.Fetcher.Suggest(tag)
	writeSuggestion(c.App.Writer, s)
	return nil
}

func writeSuggestion(w io.Writer, s suggest.Suggestion) {
	if s.Tag != "" {
		fmt.Fprintf(w, "%s\t%s\t(%s)\n", s.Tag, s.URL, s.Source)
		return
	}
	fmt.Fprintf(w, "%s\t(%s)\n", s.URL, s.Source)
}

func completeCommand(c *cli.Context) error {
	prefix, err := requireArg(c, "<prefix>")
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, comp := range a.Index.Complete(prefix, c.Int("limit")) {
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", comp.Token, comp.Count)
	}
	return nil
}

func exportCommand(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if path := c.String("out"); path != "" {
		if err := a.Store.ExportFile(path, c.String("format")); err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "exported %d records to %s\n", a.Store.Len(), path)
		return nil
	}
	return a.Store.Export(c.App.Writer, c.String("format"))
}

func importCommand(c *cli.Context) error {
	path, err := requireArg(c, "<file>")
	if err != nil {
		return err
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := tags.OpenArchive(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer r.Close()

	n, err := a.Store.Import(r)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "imported %d records (%d cached)\n", n, a.Store.Len())
	return nil
}

func serveCommand(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(c)
	defer cancel()

	return server.New(a).Run(ctx)
}

func printRecord(c *cli.Context, rec tags.Record) error {
	if c.Bool("json") {
		return writeJSON(c.App.Writer, rec)
	}
	return writeRecord(c.App.Writer, rec)
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeRecord prints rec as a readable text block. Sections are sorted by title.
func writeRecord(w io.Writer, rec tags.Record) error {
	var b strings.Builder

	b.WriteString(rec.Tag)
	if rec.TagTranslation != "" {
		b.WriteString(" (" + rec.TagTranslation + ")")
	}
	b.WriteString("\n")
	if rec.Posts > 0 {
		fmt.Fprintf(&b, "posts: %d\n", rec.Posts)
	}
	if names := rec.SynonymList(); len(names) > 0 {
		b.WriteString("synonyms: " + strings.Join(names, ", ") + "\n")
	}
	if rec.Meaning != "" {
		b.WriteString("\n" + rec.Meaning + "\n")
	}
	if rec.MeaningTranslation != "" {
		b.WriteString("\n" + rec.MeaningTranslation + "\n")
	}

	titles := make([]string, 0, len(rec.Sections))
	for title := range rec.Sections {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		b.WriteString("\n[" + title + "]\n" + rec.Sections[title] + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
