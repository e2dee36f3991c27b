package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := OpenResource(context.Background(), thisFile)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource not to be remote")
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := OpenResource(context.Background(), fetchUrl)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if !res.IsRemote() {
		t.Fatal("expected http resource to be remote")
	}
	if res.Path() != fetchUrl {
		t.Fatalf("expected resource path to be %q; got %q", fetchUrl, res.Path())
	}

	fetchUrl = server.URL + "/file-not-found.foo"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = OpenResource(context.Background(), fetchUrl)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestHttpResourceCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := OpenResource(ctx, server.URL+"/scene.zip"); err == nil {
		t.Fatal("expected fetching with a cancelled context to fail")
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := OpenResource(context.Background(), "gopher://digging.go")
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("embedded", strings.NewReader("payload"))
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected to read 'payload'; got %q", data)
	}
	if res.Path() != "embedded" {
		t.Fatalf("expected path to be 'embedded'; got %q", res.Path())
	}
}
