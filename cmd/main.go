package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"salon-agent/handler"
	"salon-agent/internal/integrations/gcal"
	"salon-agent/internal/integrations/gemini"
	"salon-agent/internal/integrations/paramstore"
	"salon-agent/internal/repository"
	"salon-agent/internal/tools"
	"salon-agent/internal/usecase"
)

const defaultParamPrefix = "/salon-agent"

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	supabaseURL := mustEnv("SUPABASE_URL")
	geminiModel := envOr("GEMINI_MODEL", "gemini-1.5-flash")
	tzName := envOr("APPOINTMENT_TZ", "America/Sao_Paulo")
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 1000)
	paramPrefix := os.Getenv("PARAM_PREFIX")

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		slog.Error("invalid appointment time zone", "tz", tzName, "err", err)
		os.Exit(1)
	}

	// ---- Secrets ----
	secrets, prefix, err := buildSecretsGetter(ctx, paramPrefix)
	if err != nil {
		slog.Error("failed to initialize secrets getter", "err", err)
		os.Exit(1)
	}
	supabaseKey, err := secrets.GetParameter(ctx, paramstore.Join(prefix, "supabase-key"))
	if err != nil {
		slog.Error("failed to resolve supabase key", "err", err)
		os.Exit(1)
	}
	googleCreds, err := secrets.GetParameter(ctx, paramstore.Join(prefix, "google-creds"))
	if err != nil {
		slog.Error("failed to resolve google credentials", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, err := repository.New(supabaseURL, supabaseKey)
	if err != nil {
		slog.Error("failed to create repository client", "err", err)
		os.Exit(1)
	}
	calendar, err := gcal.NewClient(ctx, []byte(googleCreds))
	if err != nil {
		slog.Error("failed to create calendar client", "err", err)
		os.Exit(1)
	}

	// ---- Tools ----
	professionals, err := loadProfessionals()
	if err != nil {
		slog.Error("failed to load professionals directory", "err", err)
		os.Exit(1)
	}
	slots, err := tools.NewSlotsHandler(calendar, professionals, loc)
	if err != nil {
		slog.Error("failed to create slots handler", "err", err)
		os.Exit(1)
	}
	appointments, err := tools.NewAppointmentHandler(calendar, store, professionals, loc)
	if err != nil {
		slog.Error("failed to create appointment handler", "err", err)
		os.Exit(1)
	}
	registry, err := tools.NewRegistry(slots, appointments)
	if err != nil {
		slog.Error("failed to create tool registry", "err", err)
		os.Exit(1)
	}
	dispatcher, err := tools.NewDispatcher(registry)
	if err != nil {
		slog.Error("failed to create tool dispatcher", "err", err)
		os.Exit(1)
	}

	// ---- Model gateway ----
	model, err := gemini.NewClient(secrets, prefix, geminiModel, registry.Declarations())
	if err != nil {
		slog.Error("failed to create gemini client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(store, model, dispatcher, maxMessageLen)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// buildSecretsGetter prefers SSM Parameter Store when PARAM_PREFIX is set and
// otherwise serves the secrets already present in the process environment
// through the same Getter interface.
func buildSecretsGetter(ctx context.Context, paramPrefix string) (paramstore.Getter, string, error) {
	if paramPrefix != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", err
		}
		client, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			return nil, "", err
		}
		return client, paramPrefix, nil
	}

	static, err := paramstore.NewStatic(map[string]string{
		paramstore.Join(defaultParamPrefix, "gemini-api-key"): os.Getenv("GEMINI_API_KEY"),
		paramstore.Join(defaultParamPrefix, "supabase-key"):   os.Getenv("SUPABASE_KEY"),
		paramstore.Join(defaultParamPrefix, "google-creds"):   os.Getenv("GOOGLE_CREDS_JSON"),
	})
	if err != nil {
		return nil, "", err
	}
	return static, defaultParamPrefix, nil
}

func loadProfessionals() (tools.Directory, error) {
	raw := os.Getenv("PROFESSIONALS_JSON")
	if raw == "" {
		return tools.DefaultDirectory(), nil
	}
	var dir tools.Directory
	if err := json.Unmarshal([]byte(raw), &dir); err != nil {
		return nil, err
	}
	return dir, nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
