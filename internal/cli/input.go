// Package cli handles cmd line input for trying predictions and suggestions interactively
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/symptoserve/internal/utils"
	"github.com/bastiangx/symptoserve/pkg/predict"
)

var (
	diseaseStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	symptomStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#907aa9", Dark: "#c4a7e7"})
	mutedStyle = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
)

// InputHandler reads lines and answers them on out.
// A comma separated line is a prediction request; a line starting with '?'
// asks for symptom suggestions.
type InputHandler struct {
	predictor    *predict.Predictor
	in           io.Reader
	out          io.Writer
	suggestLimit int
	maxInputLen  int
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(p *predict.Predictor, in io.Reader, out io.Writer, suggestLimit, maxInputLen int) *InputHandler {
	return &InputHandler{
		predictor:    p,
		in:           in,
		out:          out,
		suggestLimit: suggestLimit,
		maxInputLen:  maxInputLen,
	}
}

// Start begins the interface loop. It returns nil at end of input or on
// "quit" and "exit".
func (h *InputHandler) Start(ctx context.Context) error {
	fmt.Fprintln(h.out, "SymptoServe CLI")
	fmt.Fprintln(h.out, mutedStyle.Render("symptoms separated by commas to predict, ?text for suggestions, quit to exit"))
	reader := bufio.NewReader(h.in)

	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if line == "quit" || line == "exit" {
				return nil
			}
			if herr := h.handleInput(ctx, line); herr != nil {
				return herr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// handleInput dispatches one non-empty line. Only context errors are returned.
func (h *InputHandler) handleInput(ctx context.Context, line string) error {
	h.requestCount++
	if utf8.RuneCountInString(line) > h.maxInputLen*4 {
		log.Errorf("Input too long: %d characters", utf8.RuneCountInString(line))
		return nil
	}
	if partial, ok := strings.CutPrefix(line, "?"); ok {
		h.suggest(strings.TrimSpace(partial))
		return nil
	}
	return h.predict(ctx, utils.SplitSymptoms(line))
}

func (h *InputHandler) suggest(partial string) {
	if !utils.HasContent(partial) {
		fmt.Fprintln(h.out, mutedStyle.Render("type part of a symptom after '?'"))
		return
	}
	start := time.Now()
	suggestions := h.predictor.Suggest(partial, h.suggestLimit)
	log.Debugf("Took [ %v ] to suggest for '%s'", time.Since(start), partial)

	if len(suggestions) == 0 {
		fmt.Fprintf(h.out, "No symptoms resemble '%s'\n", partial)
		return
	}
	for i, s := range suggestions {
		fmt.Fprintf(h.out, "%2d. %s\n", i+1, symptomStyle.Render(s))
	}
}

func (h *InputHandler) predict(ctx context.Context, symptoms []string) error {
	for _, s := range symptoms {
		if utf8.RuneCountInString(s) > h.maxInputLen {
			log.Errorf("Symptom too long: %q", s)
			return nil
		}
	}

	start := time.Now()
	result, err := h.predictor.Predict(ctx, symptoms)
	if err != nil {
		return err
	}
	log.Debugf("Took [ %v ] for %d symptoms", time.Since(start), len(symptoms))

	switch result.Outcome() {
	case predict.OutcomeNoMatch:
		fmt.Fprintln(h.out, "None of those symptoms are known. Try ?text for suggestions.")
		return nil
	case predict.OutcomeBelowConfidence:
		fmt.Fprintln(h.out, "Matched symptoms, but no disease is likely enough:")
		h.printMatched(result)
		return nil
	}

	h.printMatched(result)
	for i, p := range result.Predictions {
		fmt.Fprintf(h.out, "%2d. %s %5.1f%%\n", i+1, diseaseStyle.Render(p.Disease), p.Probability*100)
		if p.Info == nil {
			continue
		}
		if p.Info.Description != "" {
			fmt.Fprintf(h.out, "    %s\n", mutedStyle.Render(p.Info.Description))
		}
		if len(p.Info.Precautions) > 0 {
			fmt.Fprintf(h.out, "    precautions: %s\n", strings.Join(p.Info.Precautions, ", "))
		}
	}
	return nil
}

func (h *InputHandler) printMatched(result predict.Result) {
	for _, m := range result.Matched {
		fmt.Fprintf(h.out, "  %s %s\n", symptomStyle.Render(m.Symptom),
			mutedStyle.Render(fmt.Sprintf("(%s %.0f)", m.Strategy, m.Score)))
	}
}
