package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kustoscope/internal/refine"
	"kustoscope/internal/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a natural language question about your telemetry",
	Long: `Generates a query from a natural language question and opens an
interactive review loop: execute, explain, edit, regenerate, inspect
history, or cancel. Results can then be analyzed for statistics,
patterns, and insights.

Example:
  kustoscope ask "show me the slowest endpoints in the last 24 hours"`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	in := bufio.NewScanner(os.Stdin)

	if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
		return runSession(ctx, a, in, question)
	}

	for {
		question, ok := promptLine(in, "Question (empty to quit): ")
		if !ok || question == "" {
			return nil
		}
		if err := runSession(ctx, a, in, question); err != nil {
			fmt.Fprintln(os.Stderr, renderError(err))
		}
	}
}

// runSession drives one question through the review loop.
func runSession(ctx context.Context, a *app, in *bufio.Scanner, question string) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	sess, err := refine.Start(callCtx, a.generator, a.store, question, a.sessionOptions())
	cancel()
	if err != nil {
		return err
	}
	logger.Debug("refinement session started", zap.String("session", sess.ID()))
	defer func() {
		logger.Debug("refinement session ended",
			zap.String("session", sess.ID()),
			zap.String("state", string(sess.State())))
	}()

	fmt.Println()
	fmt.Println(renderCandidate(sess.Candidate(), lowConfidenceWarning(sess, a)))

	for sess.State() == refine.StateReviewing {
		action, payload, ok := promptAction(in, sess)
		if !ok {
			action = refine.ActionCancel
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		outcome, err := sess.Act(callCtx, action, payload)
		cancel()
		if err != nil {
			if refine.IsRecoverable(err) {
				fmt.Fprintln(os.Stderr, renderWarning(err.Error()))
				continue
			}
			return err
		}

		switch action {
		case refine.ActionExplain:
			fmt.Println(renderMarkdown(outcome.Explanation))
		case refine.ActionHistory:
			fmt.Println(renderHistory(outcome.Records))
			if idx, ok := promptIndex(in, len(outcome.Records)); ok {
				selected, err := sess.SelectHistory(idx)
				if err != nil {
					fmt.Fprintln(os.Stderr, renderWarning(err.Error()))
					continue
				}
				outcome = selected
				fmt.Println(renderCandidate(outcome.Candidate, outcome.Warning))
			}
		case refine.ActionExecute:
			fmt.Println(renderResult(outcome.Result, outcome.ExecutionTime))
			analyzeInteractive(ctx, a, in, outcome.Result, sess.Candidate().Query)
		case refine.ActionCancel:
			fmt.Println(mutedStyle.Render("cancelled"))
		default:
			fmt.Println(renderCandidate(outcome.Candidate, outcome.Warning))
		}
	}
	return nil
}

// analyzeInteractive asks which analysis to run on an executed result.
func analyzeInteractive(ctx context.Context, a *app, in *bufio.Scanner, result *types.ExecutionResult, query string) {
	choice, ok := promptLine(in, "Analyze results? [s]tatistical / [p]atterns / [i]nsights / [f]ull / [n]one: ")
	if !ok {
		return
	}
	mode, ok := analysisModeFor(choice)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := a.engine.Analyze(callCtx, result, query, mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		return
	}
	fmt.Println(renderAnalysis(res))
}

func analysisModeFor(choice string) (types.AnalysisMode, bool) {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "s", "statistical":
		return types.ModeStatistical, true
	case "p", "patterns":
		return types.ModePatterns, true
	case "i", "insights":
		return types.ModeInsights, true
	case "f", "full":
		return types.ModeFull, true
	default:
		return "", false
	}
}

// promptAction shows the available actions and reads one choice.
// Returns ok=false on EOF.
func promptAction(in *bufio.Scanner, sess *refine.Session) (refine.Action, string, bool) {
	available := sess.Available()
	labels := make([]string, len(available))
	for i, act := range available {
		labels[i] = actionLabel(act)
	}
	fmt.Println(mutedStyle.Render("Actions: " + strings.Join(labels, " / ")))

	for {
		choice, ok := promptLine(in, "> ")
		if !ok {
			return "", "", false
		}
		act, ok := actionFor(choice, available)
		if !ok {
			fmt.Println(renderWarning("unrecognized choice"))
			continue
		}
		if act == refine.ActionEdit {
			edited, _ := promptLine(in, "New query: ")
			return act, edited, true
		}
		return act, "", true
	}
}

func actionLabel(act refine.Action) string {
	switch act {
	case refine.ActionExecute:
		return "[x]ecute"
	case refine.ActionExplain:
		return "e[?]xplain"
	case refine.ActionEdit:
		return "[e]dit"
	case refine.ActionRegenerate:
		return "[r]egenerate"
	case refine.ActionHistory:
		return "[h]istory"
	case refine.ActionCancel:
		return "[c]ancel"
	}
	return string(act)
}

func actionFor(choice string, available []refine.Action) (refine.Action, bool) {
	var act refine.Action
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "x", "execute":
		act = refine.ActionExecute
	case "?", "explain":
		act = refine.ActionExplain
	case "e", "edit":
		act = refine.ActionEdit
	case "r", "regenerate":
		act = refine.ActionRegenerate
	case "h", "history":
		act = refine.ActionHistory
	case "c", "cancel", "q", "quit":
		act = refine.ActionCancel
	default:
		return "", false
	}
	for _, a := range available {
		if a == act {
			return act, true
		}
	}
	return "", false
}

func promptIndex(in *bufio.Scanner, n int) (int, bool) {
	raw, ok := promptLine(in, fmt.Sprintf("Select entry 0-%d (empty to keep current): ", n-1))
	if !ok || raw == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= n {
		fmt.Println(renderWarning("invalid index"))
		return 0, false
	}
	return idx, true
}

// promptLine reads one trimmed line; ok is false on EOF.
func promptLine(in *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func lowConfidenceWarning(sess *refine.Session, a *app) string {
	c := sess.Candidate()
	if c != nil && c.Confidence < a.cfg.Refine.ConfidenceThreshold {
		return fmt.Sprintf("confidence %.2f is below %.2f; review the query before executing",
			c.Confidence, a.cfg.Refine.ConfidenceThreshold)
	}
	return ""
}
