package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"seikenbot/cmd/seikenbot/internal/telegram/config"
	"seikenbot/cmd/seikenbot/internal/telegram/handlers"
	"seikenbot/cmd/seikenbot/internal/telegram/platform"
	"seikenbot/pkg/api"
	"seikenbot/pkg/clients"
	"seikenbot/pkg/dispatch"
	"seikenbot/pkg/tools"
)

var errInvalidParameters = errors.New("invalid parameters")

func main() {
	const contextCanceledExitCode = 130

	if err := runSeikenBot(); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(contextCanceledExitCode)
		default:
			log.Fatal(err)
		}
	}
}

type seikenBotConfig struct {
	bind                    string
	publicURL               string
	webhookPath             string
	webhookSecret           string
	deleteWebhook           bool
	removeWebhookOnShutdown bool
	tgBotToken              string
	allowedUserID           int64
	allowedChatID           int64
	forbiddenWords          string
	maxVoiceDuration        time.Duration
	sttURL                  string
	sttAPIKey               string
	sttModel                string
	sttLanguage             string
	githubAPIURL            string
	httpTimeout             time.Duration
	shutdownTimeout         time.Duration
	vaultAddress            string
	vaultUser               string
	vaultPassword           string
	vaultMountPath          string
	vaultSecretPath         string
	logLevel                string
	logType                 string
}

func newSeikenBotConfig() *seikenBotConfig {
	c := new(seikenBotConfig)
	tools.StringVarFlagWithEnv(&c.bind, "bind", ":8080", "Local network address to serve the webhook on")
	tools.StringVarFlagWithEnv(&c.publicURL, "public-url", "",
		"Public HTTPS base URL under which telegram reaches the webhook")
	tools.StringVarFlagWithEnv(&c.webhookPath, "webhook-path", "/", "Path of the webhook endpoint")
	tools.StringVarFlagWithEnv(&c.webhookSecret, "webhook-secret", "",
		"Secret token telegram puts into every webhook request, empty disables the check")
	tools.BoolVarFlagWithEnv(&c.deleteWebhook, "delete-webhook", false,
		"Delete a webhook registered for another URL instead of failing")
	tools.BoolVarFlagWithEnv(&c.removeWebhookOnShutdown, "remove-webhook-on-shutdown", false,
		"Remove the webhook registration when the bot stops")
	tools.StringVarFlagWithEnv(&c.tgBotToken, "tg-bot-token", "",
		"The secret token used to authenticate the bot")
	tools.Int64VarFlagWithEnv(&c.allowedUserID, "allowed-user-id", 0,
		"Telegram user ID allowed to use the commands")
	tools.Int64VarFlagWithEnv(&c.allowedChatID, "allowed-chat-id", 0,
		"Telegram chat ID allowed to use the commands")
	tools.StringVarFlagWithEnv(&c.forbiddenWords, "forbidden-words", strings.Join(handlers.DefaultForbiddenWords, ","),
		"Comma separated words whose messages are deleted, empty disables moderation")
	tools.DurationVarFlagWithEnv(&c.maxVoiceDuration, "max-voice-duration", handlers.DefaultMaxVoiceDuration,
		"Longest voice message which is transcribed")
	tools.StringVarFlagWithEnv(&c.sttURL, "stt-url", clients.DefaultWhisperURL, "Speech to text endpoint URL")
	tools.StringVarFlagWithEnv(&c.sttAPIKey, "stt-api-key", "",
		"Speech to text API key, empty disables transcription")
	tools.StringVarFlagWithEnv(&c.sttModel, "stt-model", clients.DefaultWhisperModel, "Speech to text model")
	tools.StringVarFlagWithEnv(&c.sttLanguage, "stt-language", "es", "Speech language hint, empty to autodetect")
	tools.StringVarFlagWithEnv(&c.githubAPIURL, "github-api-url", clients.DefaultGitHubAPIURL, "GitHub API base URL")
	tools.DurationVarFlagWithEnv(&c.httpTimeout, "http-timeout", 30*time.Second,
		"Timeout of outgoing HTTP requests")
	tools.DurationVarFlagWithEnv(&c.shutdownTimeout, "shutdown-timeout", 10*time.Second,
		"Time given to in-flight updates when the bot stops")
	tools.StringVarFlagWithEnv(&c.vaultAddress, "vault-address", "", "Vault server address, empty disables vault")
	tools.StringVarFlagWithEnv(&c.vaultUser, "vault-user", "", "Vault user")
	tools.StringVarFlagWithEnv(&c.vaultPassword, "vault-password", "", "Vault user's password")
	tools.StringVarFlagWithEnv(&c.vaultMountPath, "vault-mount-path", "secret", "Vault KV v2 mount path")
	tools.StringVarFlagWithEnv(&c.vaultSecretPath, "vault-secret-path", "seikenbot", "Vault secret with bot credentials")
	tools.StringVarFlagWithEnv(&c.logLevel, "log-level", "INFO",
		"Logging level. Supported levels: DEBUG, INFO, WARN, ERROR, FATAL. Default logging level INFO.")
	tools.StringVarFlagWithEnv(&c.logType, "log-type", tools.LoggerConsole,
		"Logger output format. Supported formats: console, json.")
	return c
}

func (c *seikenBotConfig) validate(logger *zap.Logger) error {
	if c.tgBotToken == "" {
		logger.Error("telegram bot token is required")
		return errInvalidParameters
	}
	if c.publicURL == "" {
		logger.Error("public url is required for the webhook")
		return errInvalidParameters
	}
	if c.allowedUserID == 0 && c.allowedChatID == 0 {
		logger.Warn("Neither allowed user ID nor allowed chat ID is set, every command will be rejected")
	}
	if c.maxVoiceDuration <= 0 {
		logger.Error("max voice duration must be positive", zap.Duration("max-voice-duration", c.maxVoiceDuration))
		return errInvalidParameters
	}
	if c.shutdownTimeout <= 0 {
		logger.Error("shutdown timeout must be positive", zap.Duration("shutdown-timeout", c.shutdownTimeout))
		return errInvalidParameters
	}
	return nil
}

func (c *seikenBotConfig) vaultEnabled() bool {
	return c.vaultAddress != ""
}

// loadVaultSecrets fills credentials which were not given by flags or environment.
func (c *seikenBotConfig) loadVaultSecrets(ctx context.Context, logger *zap.Logger) error {
	cl, err := clients.NewVaultSimpleClient(ctx, logger, c.vaultAddress, c.vaultUser, c.vaultPassword)
	if err != nil {
		return errors.Wrap(err, "failed to create vault client")
	}
	secrets, err := clients.ReadBotSecrets(ctx, cl, c.vaultMountPath, c.vaultSecretPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read bot secrets from vault path '%s'", c.vaultSecretPath)
	}
	if c.tgBotToken == "" {
		c.tgBotToken = secrets.BotToken
	}
	if c.sttAPIKey == "" {
		c.sttAPIKey = secrets.STTAPIKey
	}
	logger.Info("Bot secrets have been loaded from vault", zap.String("path", c.vaultSecretPath))
	return nil
}

func runSeikenBot() error {
	cfg := newSeikenBotConfig()
	flag.Parse()

	logger, atom, err := tools.SetupZapLogger(cfg.logLevel, cfg.logType)
	if err != nil {
		log.Printf("Failed to setup zap logger: %v", err)
		return errInvalidParameters
	}
	defer func(zap *zap.Logger) {
		if syncErr := zap.Sync(); syncErr != nil {
			log.Println(syncErr)
		}
	}(logger)

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()

	if cfg.vaultEnabled() {
		if vaultErr := cfg.loadVaultSecrets(ctx, logger); vaultErr != nil {
			logger.Error("Failed to load secrets from vault", zap.Error(vaultErr))
			return vaultErr
		}
	}
	if validateErr := cfg.validate(logger); validateErr != nil {
		return validateErr
	}

	bot, err := config.NewBot(cfg.tgBotToken, cfg.httpTimeout)
	if err != nil {
		logger.Error("Failed to initialize telegram bot", zap.Error(err))
		return err
	}
	logger.Info("Telegram bot has been initialized", zap.String("username", bot.Me.Username))

	env := &handlers.Environment{
		Client:           platform.NewTelebot(bot),
		AllowList:        dispatch.AllowList{UserID: cfg.allowedUserID, ChatID: cfg.allowedChatID},
		BotUsername:      bot.Me.Username,
		ForbiddenWords:   tools.SplitList(cfg.forbiddenWords),
		MaxVoiceDuration: cfg.maxVoiceDuration,
		Profiles:         clients.NewGitHubClient(cfg.githubAPIURL, cfg.httpTimeout),
		Logger:           logger,
	}
	if cfg.sttAPIKey != "" {
		env.Transcriber = clients.NewWhisperClient(cfg.sttURL, cfg.sttAPIKey, cfg.sttModel, cfg.sttLanguage,
			cfg.httpTimeout)
	} else {
		logger.Warn("Speech to text API key is not set, voice messages will not be transcribed")
	}

	metrics, err := tools.NewBotMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("Failed to register bot metrics", zap.Error(err))
		return err
	}
	dispatcher := dispatch.NewDispatcher(metrics)
	if initErr := handlers.InitHandlers(dispatcher, env); initErr != nil {
		logger.Error("Failed to register bot handlers", zap.Error(initErr))
		return initErr
	}

	webhookAPI := api.NewAPI(dispatcher, logger, api.Options{
		Bind:        cfg.bind,
		WebhookPath: cfg.webhookPath,
		SecretToken: cfg.webhookSecret,
		ReadTimeout: cfg.httpTimeout,
		OnError:     config.NewOnErrorHandler(logger),
		Metrics:     metrics,
		Atom:        atom,
	})
	if startErr := webhookAPI.Start(); startErr != nil {
		logger.Error("Failed to start webhook API", zap.Error(startErr))
		return startErr
	}

	webhookURL := config.WebhookURL(cfg.publicURL, cfg.webhookPath)
	if regErr := config.RegisterWebhook(bot, webhookURL, cfg.webhookSecret, cfg.deleteWebhook, logger); regErr != nil {
		logger.Error("Failed to register webhook", zap.Error(regErr))
		webhookAPI.Shutdown(cfg.shutdownTimeout)
		return regErr
	}
	logger.Info("Seikenbot is running", zap.String("webhook", webhookURL))

	<-ctx.Done()
	logger.Info("Shutting down seikenbot")

	webhookAPI.Shutdown(cfg.shutdownTimeout)
	if cfg.removeWebhookOnShutdown {
		if deregErr := config.DeregisterWebhook(bot, logger); deregErr != nil {
			logger.Error("Failed to remove webhook", zap.Error(deregErr))
		}
	}
	logger.Info("Seikenbot has been stopped")
	return ctx.Err()
}
