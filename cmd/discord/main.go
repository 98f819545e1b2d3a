package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	commands "github.com/keshon/server-babel/internal/commands/translate"
	"github.com/keshon/server-babel/internal/config"
	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/internal/discord"
	"github.com/keshon/server-babel/internal/logging"
	"github.com/keshon/server-babel/internal/reply"
	"github.com/keshon/server-babel/internal/scheduler"
	"github.com/keshon/server-babel/internal/storage"
	"github.com/keshon/server-babel/internal/translate"
	"github.com/keshon/server-babel/pkg/cmd"
	"github.com/keshon/server-babel/pkg/jobmgr"
)

const appName = "server-babel"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.Stderr(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error().Err(err).Msg("bot exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("bot exited cleanly")
}

func run(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (err error) {
	logger.Info().Str("app", appName).Msg("starting")

	store, err := storage.New(cfg.StoragePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	jobs := jobmgr.NewManager(logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if serr := jobs.Shutdown(shutdownCtx); serr != nil {
			logger.Warn().Err(serr).Msg("jobs did not stop in time")
		}
	}()

	validate := cmd.NewValidator()
	d := cmd.New(logger, jobs, cmd.WithValidator(validate), cmd.WithPublisher(publisher(logger, jobs, cfg, validate)))

	providers, err := buildProviders(ctx, logger, cfg)
	if err != nil {
		return err
	}
	chain := translate.NewChain(logger, providers...)
	if err := chain.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize translation providers: %w", err)
	}

	bot, err := discord.New(logger, cfg.DiscordToken, d, discord.Options{LogLevel: discord.LogLevel(cfg.LogLevel)})
	if err != nil {
		return err
	}

	sched := scheduler.New(logger, jobs, d, store)
	scheduler.Persist[reply.Delete](sched, reply.DeleteKind)

	reply.Register(d, reply.NewSendHandler(logger, bot, sched), reply.NewDeleteHandler(logger, bot))

	schema := commands.BuildCommands(chain.CandidateLanguages(cfg.Translate.CommandLimit, cfg.Translate.PreferredLanguages))
	commands.Register(d, commands.Handlers{
		Translate: commands.NewHandler(logger, chain),
		Reaction:  commands.NewReactionHandler(logger, d, bot, store, cfg.TempReplyTTL),
		Slash:     commands.NewSlashHandler(logger, d, bot),
		Channels:  commands.NewChannelsHandler(logger, store, bot),
		Message:   commands.NewMessageCommandHandler(logger, d, bot),
		Schema: commands.NewSchemaHandler(logger, bot, store, schema, commands.SchemaOptions{
			Register:  cfg.InitSlashCommands,
			Blacklist: cfg.DiscordGuildBlacklist,
		}),
		Logs: commands.NewLogHandler(logger),
	})
	logger.Debug().Strs("commands", d.Commands()).Strs("events", d.Events()).Msg("handlers registered")

	resumed, err := sched.Resume(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to resume pending replies")
	} else if resumed > 0 {
		logger.Info().Int("count", resumed).Msg("resumed pending reply deletions")
	}

	return bot.Run(ctx)
}

func publisher(logger zerolog.Logger, jobs *jobmgr.Manager, cfg *config.Config, validate *validator.Validate) cmd.Publisher {
	if cfg.EventPublisher == config.PublisherBackground {
		return cmd.NewBackgroundPublisher(logger, jobs, cmd.WithEventValidation(validate))
	}
	return cmd.NewConcurrentPublisher(logger, cmd.WithUninstrumented(core.LogReceived{}))
}
