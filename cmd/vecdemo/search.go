package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/kailas-cloud/vecdemo/internal/domain/search/approach"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/request"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
)

type searchOptions struct {
	image      bool
	approaches []string
	filter     string
	captions   bool
	json       bool
}

// snippetWidth truncates the snippet column.
const snippetWidth = 80

func runSearch(ctx context.Context, w io.Writer, env, configPath string, args []string, opts searchOptions) error {
	a, err := buildApp(ctx, env, configPath)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	svc := a.text
	keys := opts.approaches
	filter := opts.filter
	if opts.image {
		if a.image == nil {
			return errors.New("image search is not configured (embedding.image.endpoint is empty)")
		}
		svc = a.image
		if len(keys) == 0 {
			keys = []string{approach.VectorOnly.Key()}
		}
	} else if filter == "" && slices.Contains(keys, approach.VectorWithFilter.Key()) {
		filter = a.cfg.Search.Text.DefaultFilter
	}

	req, err := request.New(strings.Join(args, " "), keys, request.Options{
		Filter:   filter,
		Captions: opts.captions,
	})
	if err != nil {
		return err
	}

	out, err := svc.Run(ctx, &req)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomeJSON(&out))
	}
	return printOutcome(w, &out)
}

func printOutcome(w io.Writer, out *result.Outcome) error {
	fmt.Fprintf(w, "invocation %s: %q\n", out.InvocationID, out.Query)
	for _, c := range out.Cards {
		fmt.Fprintf(w, "\n== %s (%s), %d results\n", c.Approach.Label(), c.Approach.Key(), len(c.Documents))
		if c.SemanticAnswer != nil {
			fmt.Fprintf(w, "answer: %s\n", truncate(c.SemanticAnswer.Text, snippetWidth*2))
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSCORE\tRERANK\tID\tTITLE\tSNIPPET")
		for i := range c.Documents {
			d := &c.Documents[i]
			rerank := "-"
			if rs := d.RerankerScore(); rs != nil {
				rerank = fmt.Sprintf("%.3f", *rs)
			}
			snippet := d.Snippet()
			if snippet == "" {
				snippet = d.ImageURL()
			}
			fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\t%s\t%s\n",
				i+1, d.Score(), rerank, d.ID(), d.Title(), truncate(snippet, snippetWidth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "\nerror: %s\n", e)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

type cardJSON struct {
	Approach string           `json:"approach_key"`
	Label    string           `json:"approach_label"`
	Results  []map[string]any `json:"search_results"`
	Answer   *string          `json:"semantic_answer"`
}

func outcomeJSON(out *result.Outcome) map[string]any {
	cards := make([]cardJSON, 0, len(out.Cards))
	for _, c := range out.Cards {
		cj := cardJSON{Approach: c.Approach.Key(), Label: c.Approach.Label(), Results: []map[string]any{}}
		for i := range c.Documents {
			d := &c.Documents[i]
			cj.Results = append(cj.Results, map[string]any{
				"id":       d.ID(),
				"title":    d.Title(),
				"score":    d.Score(),
				"snippet":  d.Snippet(),
				"imageUrl": d.ImageURL(),
			})
		}
		if c.SemanticAnswer != nil {
			cj.Answer = &c.SemanticAnswer.Text
		}
		cards = append(cards, cj)
	}
	return map[string]any{
		"invocation_id": out.InvocationID,
		"query":         out.Query,
		"cards":         cards,
		"errors":        out.Errors,
	}
}
