package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	config "github.com/rajivgeraev/kos-api/configs"
	"github.com/rajivgeraev/kos-api/internal/bulkaction"
	"github.com/rajivgeraev/kos-api/internal/client"
	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/logger"
	"github.com/rajivgeraev/kos-api/internal/models"
	"github.com/rajivgeraev/kos-api/internal/selection"
)

func main() {
	app := cli.NewApp()
	app.Name = "kosctl"
	app.Usage = "bulk archive and permanent delete of kos listings"

	archivedFlag := cli.BoolFlag{
		Name:  "archived",
		Usage: "work on the archive view; remove then means permanent delete",
	}

	app.Commands = []cli.Command{
		{
			Name:  "list",
			Usage: "Print the active view, or the archive with --archived",
			Flags: []cli.Flag{archivedFlag},
			Action: func(clictx *cli.Context) error {
				return run(clictx, list)
			},
		},
		{
			Name:  "remove",
			Usage: "Archive the selected kos, or delete them permanently with --archived",
			Flags: []cli.Flag{
				archivedFlag,
				cli.StringFlag{Name: "ids", Usage: "comma separated kos ids to toggle into the selection"},
				cli.BoolFlag{Name: "all", Usage: "select every kos in the current view"},
				cli.BoolFlag{Name: "yes", Usage: "skip the confirmation prompt"},
			},
			Action: func(clictx *cli.Context) error {
				return run(clictx, remove)
			},
		},
	}

	app.Action = func(clictx *cli.Context) error {
		fmt.Printf("Must specify command. Run `%s help` for info\n", app.Name)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type session struct {
	ctx    context.Context
	api    *client.Client
	logger *zap.Logger
}

func run(clictx *cli.Context, cmd func(*cli.Context, session) error) error {
	if err := config.LoadConfig(); err != nil {
		return err
	}
	zlog := logger.New(config.AppConfig.LogLevel, config.AppConfig.LogEncoding)
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cmd(clictx, session{
		ctx:    ctx,
		api:    client.New(config.AppConfig.APIURL, config.AppConfig.APIToken),
		logger: zlog,
	})
}

func list(clictx *cli.Context, s session) error {
	items, err := s.api.ListKos(s.ctx, clictx.Bool("archived"))
	if err != nil {
		return fmt.Errorf("list failed: %v", err)
	}
	printView(items)
	return nil
}

func remove(clictx *cli.Context, s session) error {
	archived := clictx.Bool("archived")

	items, err := s.api.ListKos(s.ctx, archived)
	if err != nil {
		return fmt.Errorf("list failed: %v", err)
	}
	printView(items)

	ids, err := parseIDs(clictx.String("ids"))
	if err != nil {
		return err
	}

	tracker, dropped := buildSelection(items, ids, clictx.Bool("all"))
	if dropped > 0 {
		fmt.Fprintf(os.Stderr, "%d id(s) are not in the current view and were skipped\n", dropped)
	}

	var confirmer bulkaction.Confirmer = bulkaction.NewPromptConfirmer(os.Stdin, os.Stdout)
	if clictx.Bool("yes") {
		confirmer = bulkaction.ConfirmFunc(func(context.Context, bulkaction.Prompt) (bool, error) { return true, nil })
	}

	orchestrator := bulkaction.NewOrchestrator(s.api, confirmer, bulkaction.Callbacks{
		OnRefresh: func(res lifecycle.BulkResult) {
			fmt.Printf("succeeded: %d\n", res.Count)
		},
		OnError: func(err error) {
			fmt.Println("failed")
			var bulkErr *bulkaction.BulkError
			if errors.As(err, &bulkErr) {
				for _, f := range bulkErr.Result.Failed {
					s.logger.Warn("kos not processed",
						zap.Int64("kos_id", f.ID), zap.String("kind", string(f.Kind)), zap.String("message", f.Message))
				}
			}
		},
	}, s.logger)

	outcome, err := orchestrator.RemoveSelected(s.ctx, tracker.IDs(), archived)
	switch outcome {
	case bulkaction.OutcomeNothingSelected:
		fmt.Println("nothing selected")
	case bulkaction.OutcomeDeclined:
		fmt.Println("cancelled")
	}
	return err
}

// buildSelection заполняет выбор флагами -all и -ids и сверяет его с текущим представлением
func buildSelection(items []models.Kos, ids []int64, all bool) (*selection.Tracker, int) {
	known := make([]int64, 0, len(items))
	for _, k := range items {
		known = append(known, k.ID)
	}

	tracker := selection.NewTracker()
	if all {
		tracker.ToggleSelectAll(known)
	}
	for _, id := range ids {
		tracker.Toggle(id)
	}

	before := tracker.Len()
	tracker.Retain(known)
	return tracker, before - tracker.Len()
}

func printView(items []models.Kos) {
	for _, k := range items {
		fmt.Printf("%d\t%s\n", k.ID, k.Name)
	}
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
