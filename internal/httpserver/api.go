package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ndajr/tinyurl-go/internal/core"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Shortener is the short-link service behind the HTTP surface.
type Shortener interface {
	Shorten(ctx context.Context, rawURL, owner string) (string, error)
	Resolve(ctx context.Context, code string) (string, error)
	Clicks(ctx context.Context, userName string) ([]core.ClickEvent, error)
}

// Accounts manages user records.
type Accounts interface {
	CreateUser(ctx context.Context, name string) error
	GetUser(ctx context.Context, name string) (core.User, error)
}

type newTinyRequest struct {
	LongURL  string `json:"longUrl"`
	UserName string `json:"userName,omitempty"`
}

type clicksResponse struct {
	Data    []core.ClickEvent `json:"data"`
	Message string            `json:"message,omitempty"`
}

type api struct {
	logger   *slog.Logger
	links    Shortener
	accounts Accounts
	baseURL  string
}

func (a api) createTiny(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req newTinyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, a.logger, status.New(codes.InvalidArgument, "invalid request body"))
		return
	}

	code, err := a.links.Shorten(r.Context(), req.LongURL, req.UserName)
	if err != nil {
		a.logger.Error("createTiny: failed to shorten url", "user", req.UserName, "error", err)
		writeError(w, a.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, a.baseURL+code+"/"); err != nil {
		a.logger.Error("createTiny: failed to write response", "error", err)
	}
}

func (a api) createUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeStatus(w, a.logger, status.New(codes.InvalidArgument, "missing user name"))
		return
	}
	if err := a.accounts.CreateUser(r.Context(), name); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, "User created successfully")
}

func (a api) getUser(w http.ResponseWriter, r *http.Request, params map[string]string) {
	user, err := a.accounts.GetUser(r.Context(), params["name"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if user.Shorts == nil {
		user.Shorts = map[string]core.ShortURL{}
	}
	writeJSON(w, a.logger, http.StatusOK, user)
}

func (a api) getUserClicks(w http.ResponseWriter, r *http.Request, params map[string]string) {
	events, err := a.links.Clicks(r.Context(), params["name"])
	if err != nil {
		a.logger.Error("getUserClicks: failed to read click log", "user", params["name"], "error", err)
		writeError(w, a.logger, err)
		return
	}
	resp := clicksResponse{Data: events}
	if len(events) == 0 {
		resp = clicksResponse{Data: []core.ClickEvent{}, Message: "No clicks found"}
	}
	writeJSON(w, a.logger, http.StatusOK, resp)
}
