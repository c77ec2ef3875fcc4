package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bastiangx/symptoserve/pkg/artifact"
	"github.com/bastiangx/symptoserve/pkg/fuzzy"
	"github.com/bastiangx/symptoserve/pkg/match"
)

type inspectOptions struct {
	show     int
	prefixes []string
	contains []string
	matches  []string
}

func newInspectCmd(a *app) *cobra.Command {
	var o inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print what the loaded artifacts contain",
		Long: `Print vocabulary and label sizes, a sample of symptoms and diseases,
catalog coverage, and optionally probe the vocabulary by prefix, substring or
through the full matcher cascade.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd, o)
		},
	}
	cmd.Flags().IntVarP(&o.show, "show", "n", 10, "Number of symptoms and diseases to list")
	cmd.Flags().StringSliceVar(&o.prefixes, "prefix", nil, "List symptoms starting with these prefixes")
	cmd.Flags().StringSliceVar(&o.contains, "contains", nil, "List symptoms containing these terms")
	cmd.Flags().StringArrayVar(&o.matches, "match", nil, "Resolve this text with the matcher at matcher.threshold")
	return cmd
}

func (a *app) inspect(cmd *cobra.Command, o inspectOptions) error {
	out := cmd.OutOrStdout()
	vocabPath, modelPath, catalogPath := artifactPaths(a.cfg.Artifacts)
	bundle, err := artifact.Load(vocabPath, modelPath)
	if err != nil {
		return err
	}
	v, codec := bundle.Vocabulary, bundle.Codec

	fmt.Fprintf(out, "vocabulary: %s (%d symptoms)\n", vocabPath, v.Len())
	fmt.Fprintf(out, "model:      %s (%d classes x %d features)\n", modelPath,
		bundle.Classifier.NumClasses(), bundle.Classifier.NumFeatures())

	symptoms := v.Symptoms()
	sort.Strings(symptoms)
	printList(out, "symptoms", symptoms, o.show)
	printList(out, "diseases", codec.Classes(), o.show)

	if catalog := loadCatalog(catalogPath); catalog != nil {
		var missing []string
		for _, d := range codec.Classes() {
			if catalog.Lookup(d) == nil {
				missing = append(missing, d)
			}
		}
		fmt.Fprintf(out, "catalog:    %s (%d/%d diseases covered)\n", catalogPath, codec.Len()-len(missing), codec.Len())
		if len(missing) > 0 {
			printList(out, "uncovered", missing, o.show)
		}
	}

	for _, p := range o.prefixes {
		fmt.Fprintf(out, "prefix %q: %s\n", p, strings.Join(v.WithPrefix(p), ", "))
	}
	for _, c := range o.contains {
		fmt.Fprintf(out, "contains %q: %s\n", c, strings.Join(v.Containing(c), ", "))
	}

	if len(o.matches) == 0 {
		return nil
	}
	e := newEmbedder(a.cfg.Semantic)
	if e != nil {
		defer e.Close()
	}
	m, err := match.New(cmd.Context(), v, matcherOptions(a.cfg, e))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "strategies: %s\n", strings.Join(m.Strategies(), " > "))
	for _, text := range o.matches {
		res, ok := m.MatchOne(cmd.Context(), text, a.cfg.Matcher.Threshold)
		if !ok {
			fmt.Fprintf(out, "match %q: no match at %.0f\n", text, a.cfg.Matcher.Threshold)
			continue
		}
		fmt.Fprintf(out, "match %q: %s (%s %.1f, edit distance %d)\n", text, res.Symptom, res.Strategy, res.Score,
			fuzzy.Distance(strings.ToLower(strings.TrimSpace(text)), res.Symptom))
	}
	return nil
}

func printList(w io.Writer, label string, items []string, n int) {
	shown := items
	if n >= 0 && len(shown) > n {
		shown = shown[:n]
	}
	suffix := ""
	if len(shown) < len(items) {
		suffix = fmt.Sprintf(" ... (+%d)", len(items)-len(shown))
	}
	fmt.Fprintf(w, "%-11s %s%s\n", label+":", strings.Join(shown, ", "), suffix)
}
