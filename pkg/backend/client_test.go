package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stepform/stepform/pkg/schema"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestFetchFormAttachesBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/forms/me" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"formStructure":[{"title":"Personal Details","fields":[]}],"savedData":{"PD_FullName":"Jane"},"meta":{"isSubmitted":false}}`)
	})

	env, err := c.FetchForm(context.Background(), Session{Token: "t0ken"}, "me")
	if err != nil {
		t.Fatalf("FetchForm: %v", err)
	}
	if gotAuth != "Bearer t0ken" {
		t.Errorf("Authorization = %q, want Bearer t0ken", gotAuth)
	}
	if len(env.Structure) != 1 || env.Structure[0].Title != "Personal Details" {
		t.Errorf("structure = %+v", env.Structure)
	}
	if env.SavedData["PD_FullName"] != "Jane" {
		t.Errorf("saved data = %v", env.SavedData)
	}
}

func TestFetchFormUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := c.FetchForm(context.Background(), Session{}, "me"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestSaveDraftStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNoContent, nil},
		{http.StatusForbidden, ErrLocked},
		{http.StatusUnauthorized, ErrUnauthorized},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/form/me" {
				t.Errorf("%s %s", r.Method, r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			w.WriteHeader(tc.status)
		})
		err := c.SaveDraft(context.Background(), Session{Token: "x"}, schema.Values{"PD_FullName": "Jane"})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestSubmitConflictIsAlreadySubmitted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	if _, err := c.Submit(context.Background(), Session{Token: "x"}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"errors":{"PD_FullName":"This field is required."}}`)
	})
	_, err := c.Submit(context.Background(), Session{Token: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Fields["PD_FullName"] == "" {
		t.Errorf("fields = %v", verr.Fields)
	}
}

func TestLoginReturnsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/login" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("login carried a credential: %q", auth)
		}
		io.WriteString(w, `{"token":"fresh"}`)
	})
	sess, err := c.Login(context.Background(), Credentials{Login: "jane@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != "fresh" || !sess.Authenticated() {
		t.Errorf("session = %+v", sess)
	}
}

func TestUploadMediaReturnsStoragePath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/media/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("fieldKey") != "PD_Resume" {
			t.Errorf("fieldKey = %q", r.URL.Query().Get("fieldKey"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart parse: %v", err)
		}
		io.WriteString(w, `{"path":"media/abc123.pdf","url":"https://cdn.example.com/tmp/abc123"}`)
	})

	ref, err := c.UploadMedia(context.Background(), Session{Token: "x"}, "PD_Resume", "resume.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	// The durable path is the value to persist; the URL is transient.
	if ref.Path != "media/abc123.pdf" {
		t.Errorf("path = %q", ref.Path)
	}
}

func TestDownloadMediaForwardsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="resume.pdf"`)
		io.WriteString(w, "%PDF-1.4")
	})
	dl, err := c.DownloadMedia(context.Background(), Session{Token: "x"}, "PD_Resume")
	if err != nil {
		t.Fatalf("DownloadMedia: %v", err)
	}
	defer dl.Body.Close()
	if dl.ContentType != "application/pdf" || !strings.Contains(dl.Disposition, "resume.pdf") {
		t.Errorf("headers = %q / %q", dl.ContentType, dl.Disposition)
	}
}

func TestIsSubmittedDefaultsFalseOnFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:0") // nothing listening
	if c.IsSubmitted(context.Background(), Session{Token: "x"}, "me") {
		t.Error("unreachable backend reported submitted")
	}
}
