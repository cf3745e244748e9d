package clients

import (
	"context"
	stderrs "errors"

	vault "github.com/hashicorp/vault/api"
	auth "github.com/hashicorp/vault/api/auth/userpass"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	vaultTokenTTLIncrement = 3600 // in seconds

	VaultBotTokenKey = "tg-bot-token"
	VaultSTTKey      = "stt-api-key"
)

// BotSecrets are the credentials which may be kept in Vault instead of flags or environment.
type BotSecrets struct {
	BotToken  string
	STTAPIKey string
}

func NewVaultSimpleClient(ctx context.Context, logger *zap.Logger, addr, user, pass string) (*vault.Client, error) {
	config := vault.DefaultConfig()
	if _, err := config.ParseAddress(addr); err != nil {
		return nil, errors.Wrap(err, "failed to parse vault address")
	}
	if err := config.Error; err != nil {
		return nil, errors.Wrap(err, "failed to create vault config")
	}

	client, clErr := vault.NewClient(config)
	if clErr != nil {
		return nil, errors.Wrap(clErr, "failed to create vault client from config")
	}

	if _, loginErr := vaultLogin(ctx, client, user, pass); loginErr != nil {
		return nil, errors.Wrap(loginErr, "failed to initially login to vault")
	}
	go renewToken(ctx, logger, client, user, pass)
	return client, nil
}

// ReadBotSecrets reads bot credentials from a KV v2 secret. Missing keys are left empty.
func ReadBotSecrets(ctx context.Context, client *vault.Client, mountPath, secretPath string) (BotSecrets, error) {
	secret, err := client.KVv2(mountPath).Get(ctx, secretPath)
	if err != nil {
		return BotSecrets{}, errors.Wrapf(err, "failed to read secret '%s' from mount '%s'", secretPath, mountPath)
	}
	return botSecretsFromData(secret.Data)
}

func botSecretsFromData(data map[string]interface{}) (BotSecrets, error) {
	var (
		s   BotSecrets
		err error
	)
	if s.BotToken, err = stringField(data, VaultBotTokenKey); err != nil {
		return BotSecrets{}, err
	}
	if s.STTAPIKey, err = stringField(data, VaultSTTKey); err != nil {
		return BotSecrets{}, err
	}
	return s, nil
}

func stringField(data map[string]interface{}, key string) (string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Errorf("secret field '%s' has type %T, expected string", key, raw)
	}
	return s, nil
}

var errWatcherRenewFailed = errors.New("token renewal failed")

// renewToken keeps the vault token alive until ctx is done, logging in again whenever
// the lifetime watcher gives up.
func renewToken(ctx context.Context, logger *zap.Logger, client *vault.Client, user, pass string) {
	for {
		if ctx.Err() != nil {
			return
		}
		loginResp, loginErr := vaultLogin(ctx, client, user, pass)
		if loginErr != nil {
			if errors.Is(loginErr, context.Canceled) {
				return
			}
			logger.Fatal("Unable to authenticate to vault", zap.Error(loginErr))
		}
		logger.Info("Successfully authenticated to vault", zap.String("request_id", loginResp.RequestID))
		tokenErr := manageTokenLifecycle(ctx, logger, client, loginResp)
		if tokenErr != nil && !errors.Is(tokenErr, context.Canceled) && !errors.Is(tokenErr, errWatcherRenewFailed) {
			logger.Fatal("Unable to start managing vault token lifecycle", zap.Error(tokenErr))
		}
	}
}

// manageTokenLifecycle returns nil when a new login is required and an error only on fatal failures.
func manageTokenLifecycle(ctx context.Context, logger *zap.Logger, client *vault.Client, token *vault.Secret) error {
	if renew := token.Auth.Renewable; !renew {
		logger.Warn("Vault token is not renewable, logging in again")
		return nil
	}

	watcher, err := client.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret:    token,
		Increment: vaultTokenTTLIncrement,
	})
	if err != nil {
		return errors.Wrap(err, "unable to initialize new lifetime watcher for renewing auth token")
	}

	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case renewErr := <-watcher.DoneCh():
			if renewErr != nil {
				logger.Error("Failed to renew vault token, logging in again", zap.Error(renewErr))
				return stderrs.Join(errWatcherRenewFailed, renewErr)
			}
			// max TTL reached
			logger.Info("Vault token can no longer be renewed, logging in again")
			return nil
		case renewal := <-watcher.RenewCh():
			logger.Debug("Vault token successfully renewed", zap.String("request_id", renewal.Secret.RequestID))
		}
	}
}

func vaultLogin(ctx context.Context, client *vault.Client, user, pass string) (*vault.Secret, error) {
	userpassAuth, err := auth.NewUserpassAuth(user, &auth.Password{FromString: pass})
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize userpass auth method")
	}

	authInfo, err := client.Auth().Login(ctx, userpassAuth)
	if err != nil {
		return nil, errors.Wrap(err, "unable to login to userpass auth method")
	}
	if authInfo == nil {
		return nil, errors.New("no auth info was returned after login")
	}

	return authInfo, nil
}
