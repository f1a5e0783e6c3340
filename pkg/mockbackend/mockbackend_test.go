package mockbackend

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/openai"
)

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCompletions_Sync(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	tests := []struct {
		name   string
		body   string
		text   string
		finish string
	}{
		{"default", `{"model":"mock-model","prompt":"hi"}`, "Hello, nice day!", "stop"},
		{"counting", `{"model":"mock-model","prompt":"Please count from 1 to 5"}`, "1, 2, 3, 4, 5", "stop"},
		{"pirate", `{"model":"mock-model","prompt":"talk like a Pirate"}`, "Ahoy there, matey!", "stop"},
		{"max tokens", `{"model":"mock-model","prompt":"hi","max_tokens":2}`, "Hello,", "length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var c openai.Completion
			if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if c.Object != openai.ObjectTextCompletion {
				t.Errorf("object = %q", c.Object)
			}
			if !api.ValidateCompletionID(c.ID) {
				t.Errorf("id = %q, want a completion ID", c.ID)
			}
			if len(c.Choices) != 1 {
				t.Fatalf("choices = %d, want 1", len(c.Choices))
			}
			if c.Choices[0].Text != tt.text {
				t.Errorf("text = %q, want %q", c.Choices[0].Text, tt.text)
			}
			if c.Choices[0].FinishReason != tt.finish {
				t.Errorf("finish_reason = %q, want %q", c.Choices[0].FinishReason, tt.finish)
			}
			if c.Usage == nil || c.Usage.TotalTokens != c.Usage.PromptTokens+c.Usage.CompletionTokens {
				t.Errorf("usage = %+v", c.Usage)
			}
		})
	}
}

func TestCompletions_MultipleChoices(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp := post(t, srv, `{"model":"mock-model","prompt":"hi","n":3}`)
	var c openai.Completion
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Choices) != 3 {
		t.Fatalf("choices = %d, want 3", len(c.Choices))
	}
	for i, ch := range c.Choices {
		if ch.Index != i {
			t.Errorf("choice %d index = %d", i, ch.Index)
		}
	}
}

func TestCompletions_Logprobs(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp := post(t, srv, `{"model":"mock-model","prompt":"hi","logprobs":3}`)
	var c openai.Completion
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	lp := c.Choices[0].Logprobs
	if lp == nil {
		t.Fatal("expected logprobs")
	}
	if len(lp.Tokens) != 5 || len(lp.TokenLogprobs) != 5 || len(lp.TopLogprobs) != 5 {
		t.Fatalf("unexpected lengths: %d %d %d", len(lp.Tokens), len(lp.TokenLogprobs), len(lp.TopLogprobs))
	}

	top := lp.TopLogprobs[0]
	want := []string{"Hello", "<alt-2>", "<alt-1>"}
	if len(top) != len(want) {
		t.Fatalf("top = %+v", top)
	}
	for i, tok := range want {
		if top[i].Token != tok {
			t.Errorf("top[%d] = %q, want %q", i, top[i].Token, tok)
		}
	}
}

func TestCompletions_Stream(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp := post(t, srv, `{"model":"mock-model","prompt":"café","stream":true}`)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var texts []string
	var sawDone bool
	var lastFinish string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			sawDone = true
			break
		}
		var c openai.Completion
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			t.Fatalf("bad chunk %q: %v", data, err)
		}
		texts = append(texts, c.Choices[0].Text)
		lastFinish = c.Choices[0].FinishReason
	}

	if !sawDone {
		t.Error("missing [DONE] sentinel")
	}
	if strings.Join(texts, "|") != "caf|é" {
		t.Errorf("chunks = %q", texts)
	}
	if lastFinish != "stop" {
		t.Errorf("last finish_reason = %q, want stop", lastFinish)
	}
}

func TestCompletions_StreamFailure(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp := post(t, srv, `{"model":"mock-model","prompt":"fail mid-stream","stream":true}`)
	body := new(strings.Builder)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		body.WriteString(scanner.Text() + "\n")
	}

	if !strings.Contains(body.String(), `"error"`) {
		t.Errorf("expected error event, got %q", body.String())
	}
	if strings.Contains(body.String(), "[DONE]") {
		t.Error("failed stream should not send [DONE]")
	}
}

func TestCompletions_Errors(t *testing.T) {
	srv := httptest.NewServer(NewHandler(Options{Models: []string{"a"}}))
	defer srv.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing prompt", `{"model":"a"}`, http.StatusBadRequest},
		{"unknown model", `{"model":"b","prompt":"hi"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			if body.Error.Message == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestModelsAndHealth(t *testing.T) {
	srv := httptest.NewServer(NewHandler(Options{Models: []string{"x", "y"}}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/models")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 || list.Data[0].ID != "x" || list.Data[1].ID != "y" {
		t.Errorf("models = %+v", list.Data)
	}

	health, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", health.StatusCode)
	}
}
