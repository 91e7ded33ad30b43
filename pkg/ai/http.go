package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends payload to url and decodes a successful response into out.
// errMessage extracts a provider error message from a failed response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any, provider string, errMessage func([]byte) string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if msg := errMessage(raw); msg != "" {
			return fmt.Errorf("%s api error: %s", provider, msg)
		}
		return fmt.Errorf("%s api error: %s", provider, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", provider, err)
	}
	return nil
}

// nestedErrorMessage reads {"error":{"message":"..."}} bodies used by Gemini
// and OpenAI-compatible servers.
func nestedErrorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	return body.Error.Message
}
