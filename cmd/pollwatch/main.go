// Command pollwatch follows a poll from the terminal: it renders live tally
// bars, can cast a vote first, and can create polls.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/vncsmyrnk/livepoll/internal/client"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type options struct {
	server    string
	statePath string
	vote      string
	question  string
	choices   []string
	verbose   bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "pollwatch.db"
	}
	return filepath.Join(dir, "livepoll", "pollwatch.db")
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("pollwatch", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.server, "server", "s", envOr("LIVEPOLL_SERVER", "http://localhost:8080"), "poll server base URL")
	flagSet.StringVar(&opts.statePath, "state", defaultStatePath(), "local state file (identity and voted markers)")
	flagSet.StringVar(&opts.vote, "vote", "", "cast a vote before watching: option id, option text or 1-based position")
	flagSet.StringVarP(&opts.question, "question", "q", "", "question of the poll to create")
	flagSet.StringArrayVarP(&opts.choices, "option", "o", nil, "option of the poll to create (repeatable)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log reconnects")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, `pollwatch follows a live poll.

Usage:
  pollwatch [flags] <poll-id>
  pollwatch create -q "Question?" -o First -o Second
  pollwatch mine

Flags:
%s`, flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	api, err := client.NewAPI(opts.server, nil)
	if err != nil {
		return err
	}

	state, err := openState(opts.statePath)
	if err != nil {
		return err
	}
	defer state.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return fmt.Errorf("a poll id or a subcommand is required")
	}

	switch rest[0] {
	case "create":
		return createPoll(ctx, api, state, opts)
	case "mine":
		return listMine(ctx, api, state)
	}
	return watch(ctx, api, state, rest[0], opts)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func openState(path string) (*client.LocalState, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return client.OpenLocalState(path)
}

func createPoll(ctx context.Context, api *client.API, state *client.LocalState, opts options) error {
	userID, err := state.UserID()
	if err != nil {
		return err
	}

	poll, err := api.CreatePoll(ctx, opts.question, opts.choices, userID)
	if err != nil {
		return err
	}

	fmt.Println(renderPoll(poll, "", 0))
	fmt.Printf("\nwatch it with: pollwatch %s\n", poll.ID)
	return nil
}

func listMine(ctx context.Context, api *client.API, state *client.LocalState) error {
	userID, err := state.UserID()
	if err != nil {
		return err
	}

	created, err := api.ListByCreator(ctx, userID)
	if err != nil {
		return err
	}
	voted, err := api.ListVotedBy(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Println(renderList("Created by you", created))
	fmt.Println(renderList("Voted in", voted))
	return nil
}

func watch(ctx context.Context, api *client.API, state *client.LocalState, pollID string, opts options) error {
	if opts.vote != "" {
		if err := castVote(ctx, api, state, pollID, opts.vote); err != nil {
			return err
		}
	}

	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var frames int
	watcher := client.NewWatcher(api, pollID, func(poll *domain.Poll) {
		voted, _, _ := state.VotedOption(poll.ID.String())
		if voted == "" {
			if ok, err := state.HasVoted(poll); err == nil && ok {
				voted = "?"
			}
		}
		if frames > 0 {
			fmt.Print("\033[H\033[2J")
		}
		frames++
		fmt.Println(renderPoll(poll, voted, terminalWidth()))
	}, client.WithLogger(logger))

	return watcher.Run(ctx)
}

func castVote(ctx context.Context, api *client.API, state *client.LocalState, pollID, choice string) error {
	poll, err := api.GetPoll(ctx, pollID)
	if err != nil {
		return err
	}

	option, err := resolveOption(poll, choice)
	if err != nil {
		return err
	}

	userID, err := state.UserID()
	if err != nil {
		return err
	}

	if _, err := api.Vote(ctx, pollID, option.ID.String(), userID); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			fmt.Fprintf(os.Stderr, "not counted: %v\n", err)
			return nil
		}
		return err
	}
	return state.MarkVoted(pollID, option.ID.String())
}

// resolveOption accepts an option id, its exact text (case-insensitive) or
// its 1-based position.
func resolveOption(poll *domain.Poll, choice string) (*domain.PollOption, error) {
	choice = strings.TrimSpace(choice)
	for i := range poll.Options {
		opt := &poll.Options[i]
		if opt.ID.String() == choice || strings.EqualFold(opt.Text, choice) {
			return opt, nil
		}
	}
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(poll.Options) {
		return &poll.Options[n-1], nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrOptionNotFound, choice)
}

func terminalWidth() int {
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 80
}
