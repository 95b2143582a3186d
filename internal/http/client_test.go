package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "track-converter" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/cover.png":
			w.Write([]byte("image-bytes"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 32)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient()
	data, err := c.Get(context.Background(), srv.URL+"/cover.png")
	if err != nil || string(data) != "image-bytes" {
		t.Errorf("Get() = %q, %v", data, err)
	}

	if _, err := c.Get(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Get() expected error for 404")
	}

	c.maxBytes = 16
	if _, err := c.Get(context.Background(), srv.URL+"/big"); err == nil {
		t.Error("Get() expected error for oversized body")
	}
}
