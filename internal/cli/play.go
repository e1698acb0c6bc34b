package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"world-quiz-service/internal/app"
	"world-quiz-service/internal/domain"
)

// NewPlayCmd runs one quiz session in the terminal against the configured backends.
func NewPlayCmd(configPath *string) *cobra.Command {
	var who domain.Identity
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			service := b.quizService(cfg)
			defer service.Drain(context.Background())
			return play(ctx, service, who, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&who.UserID, "user", "", "user id to save the score under (anonymous when empty)")
	cmd.Flags().StringVar(&who.DisplayName, "name", "", "display name stored with the score")
	return cmd
}

const playHelp = `Type country names, one per line. Commands:
  !status   show progress
  !finish   end the quiz now
  !quit     leave without saving (asks for confirmation)
`

// play drives one session from line-oriented input until it finishes or is quit.
func play(ctx context.Context, service *app.QuizService, who domain.Identity, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snap, err := service.Open(ctx, who)
	if err != nil {
		return err
	}
	sessionID := snap.SessionID
	defer service.Close(context.Background(), sessionID)

	updates, unsubscribe, err := service.Subscribe(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, "Name all %d countries in %s.\n%s", snap.Total, formatClock(snap.Duration), playHelp)
	if _, err := service.Start(ctx, sessionID); err != nil {
		return err
	}

	lastMinute := -1
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Result != nil {
				printResult(out, *update.Result)
				return nil
			}
			// announce each remaining minute
			if m := update.Remaining / 60; update.Status == domain.StatusRunning && m != lastMinute && update.Remaining%60 == 0 {
				lastMinute = m
				fmt.Fprintf(out, "[%s left] %d/%d\n", formatClock(update.Remaining), update.Found, update.Total)
			}
		case line, ok := <-lines:
			if !ok {
				_, err := finishAndReport(ctx, service, sessionID, out)
				return err
			}
			done, err := handleLine(ctx, service, sessionID, strings.TrimSpace(line), out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if done {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleLine reports whether the session is over, either quit or finished.
func handleLine(ctx context.Context, service *app.QuizService, sessionID, line string, out io.Writer) (bool, error) {
	snap, err := service.Snapshot(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if snap.QuitPending {
		if line == "!yes" || strings.EqualFold(line, "y") {
			if err := service.ConfirmQuit(ctx, sessionID); err != nil {
				return false, err
			}
			fmt.Fprintln(out, "Quit. Progress discarded.")
			return true, nil
		}
		_, err := service.CancelQuit(ctx, sessionID)
		fmt.Fprintln(out, "Back to the quiz.")
		return false, err
	}

	switch line {
	case "":
		return false, nil
	case "!status":
		fmt.Fprintf(out, "%d/%d (%d%%), %s left\n", snap.Found, snap.Total, snap.Percentage, formatClock(snap.Remaining))
		for _, c := range snap.Continents {
			fmt.Fprintf(out, "  %-14s %d/%d\n", c.Continent, c.Found, c.Total)
		}
		for _, g := range snap.DiscoveredByContinent {
			fmt.Fprintf(out, "found in %s: %s\n", g.Continent, strings.Join(countryNames(g.Countries), ", "))
		}
		return false, nil
	case "!finish":
		return finishAndReport(ctx, service, sessionID, out)
	case "!quit":
		if _, err := service.RequestQuit(ctx, sessionID); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Quit and lose your progress? Type !yes to confirm, anything else to continue.")
		return false, nil
	}

	res, err := service.Submit(ctx, sessionID, line)
	if err != nil {
		return false, err
	}
	switch res.Outcome {
	case domain.OutcomeAccepted:
		fmt.Fprintf(out, "✓ %s (%d/%d)\n", res.Country.Name, res.Found, res.Total)
	case domain.OutcomeDuplicate:
		fmt.Fprintf(out, "already found %s\n", res.Country.Name)
	default:
		fmt.Fprintf(out, "✗ %q is not a country\n", res.Input)
	}
	if res.Finished {
		return finishAndReport(ctx, service, sessionID, out)
	}
	return false, nil
}

// finishAndReport ends the session (or fetches the result it already has) and prints it.
func finishAndReport(ctx context.Context, service *app.QuizService, sessionID string, out io.Writer) (bool, error) {
	result, err := service.Finish(ctx, sessionID)
	if err != nil {
		return false, err
	}
	printResult(out, result)
	return true, nil
}

func printResult(out io.Writer, r domain.SessionResult) {
	fmt.Fprintf(out, "\n%s: %d/%d countries (%d%%) in %s, rating %s\n",
		r.Reason, r.CorrectAnswers, r.Total, r.Percentage, formatClock(r.ElapsedSeconds), r.Rating)
	for _, g := range r.Missed {
		fmt.Fprintf(out, "missed in %s (%d): %s\n", g.Continent, len(g.Countries), strings.Join(countryNames(g.Countries), ", "))
	}
}

func countryNames(countries []domain.Country) []string {
	names := make([]string, len(countries))
	for i, c := range countries {
		names[i] = c.Name
	}
	return names
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
