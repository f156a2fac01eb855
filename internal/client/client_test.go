package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitroom/internal/client"
	"fitroom/internal/config"
	"fitroom/internal/handler"
	"fitroom/internal/model"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStubServer(t *testing.T) (*client.Client, *handler.Backend) {
	t.Helper()

	backend := handler.NewBackend(nil, 1<<20)
	srv := httptest.NewServer(handler.NewRouter(config.CORSConfig{}, backend))
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", srv.Client()), backend
}

func TestBaseURLTrimmed(t *testing.T) {
	c := client.New("http://example.com:5000/", nil)
	if c.BaseURL() != "http://example.com:5000" {
		t.Fatalf("unexpected base %q", c.BaseURL())
	}
	if got := c.Resolve("/uploads/model.jpg"); got != "http://example.com:5000/uploads/model.jpg" {
		t.Fatalf("unexpected resolved url %q", got)
	}
}

func TestChatRoundTrip(t *testing.T) {
	c, _ := newStubServer(t)
	ctx := context.Background()

	resp, err := c.Chat(ctx, model.ChatRequest{Message: "Hello"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}

	if err := c.ClearChat(ctx, resp.SessionID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
}

func TestUploadListFetchDelete(t *testing.T) {
	c, _ := newStubServer(t)
	ctx := context.Background()

	if _, err := c.UploadModel(ctx, bytes.NewReader([]byte("model-bytes"))); err != nil {
		t.Fatal(err)
	}

	entries, err := c.ListUploads(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Filename != client.ModelFilename {
		t.Fatalf("unexpected listing %+v", entries)
	}

	body, err := c.Fetch(ctx, entries[0].URL)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "model-bytes" {
		t.Fatalf("unexpected bytes %q", data)
	}

	if err := c.DeleteUpload(ctx, client.ModelFilename); err != nil {
		t.Fatal(err)
	}

	err = c.DeleteUpload(ctx, client.ModelFilename)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestTryOnAndDefaults(t *testing.T) {
	c, backend := newStubServer(t)
	ctx := context.Background()
	backend.AddDefaultGarment("tee.jpg", model.GarmentUpper, []byte("tee"))

	garments, err := c.DefaultWardrobe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(garments) != 1 || garments[0].Type != model.GarmentUpper {
		t.Fatalf("unexpected defaults %+v", garments)
	}

	if _, err := c.TryOn(ctx, bytes.NewReader([]byte("tee")), "tee.jpg", model.GarmentUpper); err == nil {
		t.Fatal("expected try-on to fail without a model image")
	}

	c.UploadModel(ctx, bytes.NewReader([]byte("model")))
	resp, err := c.TryOn(ctx, bytes.NewReader([]byte("tee")), "tee.jpg", model.GarmentUpper)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ProcessedImageURL == "" {
		t.Fatal("expected processed image url")
	}
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to get response from AI service"}`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, srv.Client()).Chat(context.Background(), model.ChatRequest{Message: "hi"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "Failed to get response from AI service" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, srv.Client()).ListUploads(context.Background())
	if !errors.Is(err, client.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestTryOnMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, srv.Client()).TryOn(context.Background(), bytes.NewReader([]byte("x")), "", model.GarmentLower)
	if !errors.Is(err, client.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}
