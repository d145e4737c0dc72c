package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// APIError is a non-2xx answer from the HTTP API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type API struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPI targets a server root such as http://localhost:8080.
func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *API) ListNotifications(ctx context.Context) ([]*models.Notification, error) {
	var out []*models.Notification
	err := a.do(ctx, http.MethodGet, "/api/notifications", nil, &out)
	return out, err
}

func (a *API) Accept(ctx context.Context, id string) (*models.AcceptResponse, error) {
	var out models.AcceptResponse
	if err := a.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/accept", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Reject(ctx context.Context, id string) (*models.Notification, error) {
	var out models.Notification
	if err := a.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/reject", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) RequestJoin(ctx context.Context, req models.JoinRequestRequest) (*models.RequestResponse, error) {
	var out models.RequestResponse
	if err := a.do(ctx, http.MethodPost, "/api/notifications/request", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) History(ctx context.Context, projectID string, limit int) ([]*models.Message, error) {
	path := "/api/projects/" + url.PathEscape(projectID) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []*models.Message
	err := a.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
