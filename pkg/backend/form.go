package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/stepform/stepform/pkg/schema"
)

// Meta describes the submission state of a form.
type Meta struct {
	IsSubmitted bool       `json:"isSubmitted"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

// Envelope is the combined schema-plus-data payload of one form fetch.
type Envelope struct {
	Structure schema.Structure `json:"formStructure"`
	SavedData schema.Values    `json:"savedData"`
	Meta      Meta             `json:"meta"`
}

// FetchForm retrieves the form definition, the caller's saved snapshot and
// submission metadata in one round trip.
func (c *Client) FetchForm(ctx context.Context, sess Session, formID string) (*Envelope, error) {
	res, err := c.do(ctx, sess, http.MethodGet, "/api/forms/"+formID, nil)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		var env Envelope
		if err := decodeJSON(res, &env); err != nil {
			return nil, err
		}
		if env.SavedData == nil {
			env.SavedData = make(schema.Values)
		}
		return &env, nil
	case http.StatusUnauthorized:
		res.Body.Close()
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

// SaveDraft pushes a partial key-to-value map. The backend overwrites the
// named keys and leaves everything else untouched, so saves are idempotent
// per key.
func (c *Client) SaveDraft(ctx context.Context, sess Session, partial schema.Values) error {
	if partial == nil {
		partial = make(schema.Values)
	}
	res, err := c.do(ctx, sess, http.MethodPost, "/api/form/me", partial)
	if err != nil {
		return err
	}
	switch res.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		res.Body.Close()
		return nil
	case http.StatusForbidden:
		res.Body.Close()
		return ErrLocked
	case http.StatusUnauthorized:
		res.Body.Close()
		return ErrUnauthorized
	default:
		return &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

// SubmitResult is the outcome of a successful final submission.
type SubmitResult struct {
	SubmittedAt *time.Time `json:"submittedAt"`
}

// Submit performs the irreversible final submission. A 409 maps to
// ErrAlreadySubmitted (callers treat it as success-equivalent) and a 400 maps
// to a ValidationError carrying the backend's per-field messages.
func (c *Client) Submit(ctx context.Context, sess Session) (*SubmitResult, error) {
	res, err := c.do(ctx, sess, http.MethodPost, "/api/form/submit", nil)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		var out SubmitResult
		if err := decodeJSON(res, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case http.StatusConflict:
		res.Body.Close()
		return nil, ErrAlreadySubmitted
	case http.StatusBadRequest:
		var body struct {
			Errors map[string]string `json:"errors"`
		}
		if err := decodeJSON(res, &body); err != nil || len(body.Errors) == 0 {
			return nil, &ValidationError{Fields: map[string]string{}}
		}
		return nil, &ValidationError{Fields: body.Errors}
	case http.StatusUnauthorized:
		res.Body.Close()
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

// IsSubmitted is the best-effort probe used by navigation chrome. Any
// failure, transport or otherwise, reads as "not submitted".
func (c *Client) IsSubmitted(ctx context.Context, sess Session, formID string) bool {
	env, err := c.FetchForm(ctx, sess, formID)
	if err != nil {
		return false
	}
	return env.Meta.IsSubmitted
}
