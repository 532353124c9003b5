package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/aimylabs/aimy/internal/config"
	"github.com/aimylabs/aimy/internal/domain"
	"github.com/aimylabs/aimy/internal/prechat"
	"github.com/aimylabs/aimy/internal/session"
	"github.com/aimylabs/aimy/internal/store"
	"github.com/aimylabs/aimy/internal/webhook"
)

// runtimeEnv bundles the pieces every data-touching command needs: the
// loaded config, the open database and the merged settings.
type runtimeEnv struct {
	cfg      config.Config
	db       *store.DB
	store    *store.ChatStore
	settings store.Settings
}

func openEnv() (*runtimeEnv, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = paths.DB
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, err
	}

	cs := store.NewChatStore(db)
	cs.CheckSchemaVersion()

	return &runtimeEnv{
		cfg:      cfg,
		db:       db,
		store:    cs,
		settings: effectiveSettings(cfg, cs),
	}, nil
}

func (e *runtimeEnv) Close() {
	if e.db != nil {
		e.db.Close()
	}
}

// effectiveSettings layers the stored settings slot over the config file.
// Values saved from a chat session win; the file fills the gaps.
func effectiveSettings(cfg config.Config, cs *store.ChatStore) store.Settings {
	s := cs.LoadSettings()
	if s.WebhookURL == "" {
		s.WebhookURL = cfg.Webhook.URL
	}
	if s.AuthValue == "" {
		s.AuthValue = cfg.Webhook.AuthValue
	}
	if s.AuthHeader == store.DefaultSettings().AuthHeader && cfg.Webhook.AuthHeader != "" {
		s.AuthHeader = config.SanitizeHeaderName(cfg.Webhook.AuthHeader)
	}
	return s
}

// resolveWebhookTarget turns the configured webhook URL into an absolute
// request target. Relative paths resolve against the ingest base URL. An
// empty result means demo mode.
func resolveWebhookTarget(cfg config.Config, settings store.Settings) (string, error) {
	normalized, err := config.NormalizeWebhookURL(settings.WebhookURL)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(normalized, "/") {
		base := strings.TrimRight(cfg.Ingest.BaseURL, "/")
		if base == "" {
			return "", nil
		}
		return base + normalized, nil
	}
	return normalized, nil
}

// newWebhookClient picks the transport for the configured webhook URL.
// The second return reports demo mode.
func (e *runtimeEnv) newWebhookClient() (webhook.Client, bool) {
	target, err := resolveWebhookTarget(e.cfg, e.settings)
	if err != nil {
		log.Warn().Err(err).Msg("webhook url rejected, using demo answers")
		return webhook.DemoClient{}, true
	}
	if target == "" {
		return webhook.DemoClient{}, true
	}
	return webhook.NewHTTPClient(webhook.HTTPOptions{
		URL:        target,
		AuthHeader: e.settings.AuthHeader,
		AuthValue:  e.settings.AuthValue,
		Attempts:   e.cfg.Webhook.Attempts,
		Timeout:    time.Duration(e.cfg.Webhook.TimeoutSeconds) * time.Second,
		Log:        log,
	}), false
}

// restoreSession rebuilds the live session from the chat and prechat slots.
func (e *runtimeEnv) restoreSession() *session.State {
	sess := session.New(session.Options{MaxMessages: e.cfg.Chat.MaxMessages})

	res := e.store.RestoreChatState(e.cfg.Chat.MaxMessages)
	if res.Error {
		fmt.Println("Let op: de opgeslagen sessie was beschadigd en is gewist.")
	}
	if res.Restored {
		sess.AdoptChatID(res.ChatID)
		if len(res.Messages) > 0 {
			sess.SetMessages(res.Messages)
		}
		sess.SetDocs(res.Docs)
	}

	if dump := e.store.LoadPrechat(); dump != nil {
		sess.SetPrechat(prechatFromPayload(prechat.Payload{
			SerialNumber: dump.SerialNumber,
			Hours:        dump.Hours,
			FaultCodes:   dump.FaultCodes,
		}))
	}

	return sess
}

// prechatFromPayload validates an intake payload and wraps it with the
// session flags.
func prechatFromPayload(payload prechat.Payload) session.Prechat {
	validation := prechat.Validate(prechat.BuildState(payload))
	return session.Prechat{
		Record:    prechat.NewRecord(payload),
		Ready:     validation.Valid,
		Completed: validation.Valid,
		Valid:     validation.Valid,
	}
}

// persistSession writes the live snapshot to the chat and history slots.
func persistSession(env *runtimeEnv, sess *session.State) {
	snap := sess.Snapshot()
	env.store.PersistSnapshot(snap)
	env.store.PersistHistorySnapshot(snap)
}

func printTranscript(msgs []domain.Message) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printMessage(m domain.Message) {
	label := "AIMY"
	if m.Role == domain.RoleUser {
		label = "jij"
	}
	fmt.Printf("%s> %s\n\n", label, m.Content)
}
