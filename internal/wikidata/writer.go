package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// APIWriter is the MediaWiki action API implementation of ItemWriter, using
// bot-password credentials. Remote rejections come back with the API's own
// error message.
type APIWriter struct {
	APIURL   string
	User     string
	Password string
	HTTP     *http.Client

	loggedIn bool
}

func NewAPIWriter(apiURL, user, password string, timeout time.Duration) (*APIWriter, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &APIWriter{
		APIURL:   apiURL,
		User:     user,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (w *APIWriter) WriteTwinClaim(ctx context.Context, itemID string, claim Claim, twinName string) error {
	token, err := w.csrfToken(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]interface{}{"claims": []Claim{claim}})
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("action", "wbeditentity")
	form.Set("id", itemID)
	form.Set("data", string(data))
	form.Set("summary", fmt.Sprintf("Added twin city %s", twinName))
	form.Set("token", token)
	form.Set("format", "json")

	var result struct {
		Success int `json:"success"`
	}
	if err := w.post(ctx, form, &result); err != nil {
		return err
	}
	if result.Success != 1 {
		return errors.New("edit was not accepted")
	}
	return nil
}

func (w *APIWriter) Label(ctx context.Context, itemID string) (string, error) {
	form := url.Values{}
	form.Set("action", "wbgetentities")
	form.Set("ids", itemID)
	form.Set("props", "labels")
	form.Set("languages", "en")
	form.Set("format", "json")

	var result struct {
		Entities map[string]struct {
			Labels map[string]struct {
				Value string `json:"value"`
			} `json:"labels"`
		} `json:"entities"`
	}
	if err := w.post(ctx, form, &result); err != nil {
		return "", err
	}
	if entity, ok := result.Entities[itemID]; ok {
		if label, ok := entity.Labels["en"]; ok {
			return label.Value, nil
		}
	}
	return itemID, nil
}

func (w *APIWriter) csrfToken(ctx context.Context) (string, error) {
	if !w.loggedIn {
		if err := w.login(ctx); err != nil {
			return "", err
		}
		w.loggedIn = true
	}
	form := url.Values{}
	form.Set("action", "query")
	form.Set("meta", "tokens")
	form.Set("type", "csrf")
	form.Set("format", "json")

	var result tokenResponse
	if err := w.post(ctx, form, &result); err != nil {
		return "", err
	}
	if result.Query.Tokens.CSRFToken == "" {
		return "", errors.New("no csrf token granted")
	}
	return result.Query.Tokens.CSRFToken, nil
}

func (w *APIWriter) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("action", "query")
	form.Set("meta", "tokens")
	form.Set("type", "login")
	form.Set("format", "json")

	var tokens tokenResponse
	if err := w.post(ctx, form, &tokens); err != nil {
		return err
	}

	form = url.Values{}
	form.Set("action", "login")
	form.Set("lgname", w.User)
	form.Set("lgpassword", w.Password)
	form.Set("lgtoken", tokens.Query.Tokens.LoginToken)
	form.Set("format", "json")

	var result struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	if err := w.post(ctx, form, &result); err != nil {
		return err
	}
	if result.Login.Result != "Success" {
		if result.Login.Reason != "" {
			return errors.New(result.Login.Reason)
		}
		return fmt.Errorf("login failed: %s", result.Login.Result)
	}
	return nil
}

type tokenResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
			CSRFToken  string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
}

// post sends a form request and decodes the response, surfacing any API
// error message verbatim.
func (w *APIWriter) post(ctx context.Context, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "twin-cities-scraper/1.0")

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var apiErr struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
		return errors.New(apiErr.Error.Info)
	}
	return json.Unmarshal(body, out)
}
