package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"meetline/internal/bot"
	"meetline/internal/domain"
	"meetline/internal/notify"
)

// Config for the HTTP API handler.
type Config struct {
	Bot      bot.Bot
	Notifier notify.Sender
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string `json:"code" example:"unauthorized"`
	Message string `json:"message" example:"authentication required"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// New returns an HTTP handler exposing the Meetline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Meetline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerMessages(group, cfg.Bot, cfg.Notifier)
	registerSchedules(group, cfg.Bot)
	registerEvents(group, cfg.Bot)

	return router, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMessages(api huma.API, b bot.Bot, sender notify.Sender) {
	huma.Register(api, huma.Operation{
		OperationID: "post-message",
		Method:      http.MethodPost,
		Path:        "/messages",
		Summary:     "Handle one chat message",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body MessageRequest
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		reply := b.HandleMessage(ctx, domain.IncomingMessage{
			ChatID: input.Body.ChatID,
			Text:   input.Body.Text,
		})
		sender.Deliver(input.Body.ChatID, reply)
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Reply: reply}}, nil
	})
}

func registerSchedules(api huma.API, b bot.Bot) {
	huma.Register(api, huma.Operation{
		OperationID: "list-schedules",
		Method:      http.MethodGet,
		Path:        "/schedules",
		Summary:     "List recent schedules",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body struct {
			Items []domain.Schedule `json:"items"`
		} `json:"body"`
	}, error) {
		items, err := b.Repo.ListSchedules(ctx, input.Limit)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error())
		}
		out := &struct {
			Body struct {
				Items []domain.Schedule `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = items
		if out.Body.Items == nil {
			out.Body.Items = []domain.Schedule{}
		}
		return out, nil
	})
}

func registerEvents(api huma.API, b bot.Bot) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent log events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int    `query:"limit" default:"20"`
		Type  string `query:"type"`
	}) (*struct {
		Body struct {
			Items []domain.Event `json:"items"`
		} `json:"body"`
	}, error) {
		items, err := b.Repo.LatestEvents(ctx, input.Limit, input.Type)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "", err.Error())
		}
		out := &struct {
			Body struct {
				Items []domain.Event `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = items
		if out.Body.Items == nil {
			out.Body.Items = []domain.Event{}
		}
		return out, nil
	})
}
