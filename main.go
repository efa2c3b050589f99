package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/ai"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/bank"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/bot"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/config"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/database"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/diagnostic"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/exercise"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/history"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/logging"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/profile"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/internal/scheduler"
	"github.com/Re-Nailevna/Telegram-EGE-Englishbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:          "egebot",
		Short:        "EGE English preparation bot",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.AddCommand(serveCmd, newBankCommand())
	return root
}

func newBankCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Question bank utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a question bank file (.json, .csv or .xlsx)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bank.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d questions\n", b.Name, b.Total)
			counts := b.SectionCounts()
			for _, sec := range models.Sections {
				if n, ok := counts[sec]; ok {
					fmt.Fprintf(out, "  %-10s %d\n", sec, n)
				}
			}
			return nil
		},
	})
	return cmd
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := database.Open(cfg.StorageDriver, cfg.StorageDSN, cfg.DataDir, log)
	if err != nil {
		log.Error("failed to open storage", zap.Error(err))
		return err
	}
	defer store.Close()

	questions := bank.Default()
	if cfg.QuestionBankPath != "" {
		loaded, err := bank.Load(cfg.QuestionBankPath)
		if err != nil {
			log.Warn("failed to load question bank, using the bundled one",
				zap.String("path", cfg.QuestionBankPath), zap.Error(err))
		} else {
			questions = loaded
		}
	}

	prompts := ai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		if prompts, err = ai.LoadPrompts(cfg.PromptsPath); err != nil {
			return fmt.Errorf("load prompts: %w", err)
		}
	}

	gen, err := ai.NewClient(ai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout,
		Prompts: prompts,
	}, log)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Error("failed to create telegram client", zap.Error(err))
		return err
	}
	api.Debug = cfg.Debug
	log.Info("authorized on account", zap.String("username", api.Self.UserName))

	tests := diagnostic.NewEngine(questions.Items(), store, log)
	exercises := exercise.NewEngine(gen, profile.NewBuilder(store, log), log)
	transcripts := history.NewTracker(history.DefaultLimit)

	botConfig := bot.DefaultConfig()
	botConfig.TeacherContact = cfg.TeacherContact

	b, err := bot.New(bot.Deps{
		Sender:    api,
		Store:     store,
		Tests:     tests,
		Exercises: exercises,
		Generator: gen,
		History:   transcripts,
		Config:    botConfig,
		Log:       log,
	})
	if err != nil {
		return err
	}

	sched := scheduler.New(cfg.SweepInterval, cfg.SessionTTL, log)
	sched.Register("exercises", exercises)
	sched.Register("tests", tests)
	sched.Register("history", transcripts)
	sched.Register("modes", b)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		api.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error {
		log.Info("bot started", zap.Int("questions", len(questions.Questions)))
		return b.Run(gctx, updates)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", zap.Error(err))
		return err
	}
	log.Info("bot stopped")
	return nil
}
