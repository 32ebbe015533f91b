package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/stepform/stepform/internal/view"
	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/schema"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderAuth(w, s.renderer.Login, "")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	sess, err := s.backend.Login(r.Context(), backend.Credentials{
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		msg := "Sign in failed. Check your credentials and try again."
		if !errors.Is(err, backend.ErrUnauthorized) {
			s.logger.Error("login failed", logging.Err(err))
			msg = "Sign in failed. Please try again later."
		}
		s.renderAuth(w, s.renderer.Login, msg)
		return
	}
	s.setAuthCookie(w, sess.Token)
	http.Redirect(w, r, "/form", http.StatusFound)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderAuth(w, s.renderer.Register, "")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	sess, err := s.backend.Signup(r.Context(), backend.Registration{
		Name:     r.PostFormValue("name"),
		Phone:    r.PostFormValue("phone"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		s.logger.Error("signup failed", logging.Err(err))
		s.renderAuth(w, s.renderer.Register, "Signup failed. Please try again.")
		return
	}
	s.setAuthCookie(w, sess.Token)
	http.Redirect(w, r, "/form", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleFormIndex sends the browser to the first step, or straight to the
// review page once the form is submitted.
func (s *Server) handleFormIndex(w http.ResponseWriter, r *http.Request) {
	env, ok := s.fetchForm(w, r)
	if !ok {
		return
	}
	if env.Meta.IsSubmitted {
		http.Redirect(w, r, "/form/review", http.StatusFound)
		return
	}
	steps := schema.Steps(env.Structure)
	if len(steps) == 0 {
		http.Error(w, "form has no steps", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/form/"+steps[0].Slug, http.StatusFound)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	env, ok := s.fetchForm(w, r)
	if !ok {
		return
	}
	slug := r.PathValue("step")
	steps := schema.Steps(env.Structure)
	idx := -1
	for i, st := range steps {
		if st.Slug == slug {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.NotFound(w, r)
		return
	}

	step := &env.Structure[idx]
	rootAcr := steps[idx].RootAcr
	values := schema.FilterForStep(env.SavedData, rootAcr)
	seedSelections(step, values, rootAcr)

	readOnly := env.Meta.IsSubmitted
	tree := schema.ActiveTree(step, values, []string{rootAcr})
	page := &view.StepPage{
		AppName:    s.cfg.AppName,
		Title:      step.Title,
		Percent:    schema.Progress(env.Structure, env.SavedData),
		Nodes:      view.BuildNodes(tree, values, nil, readOnly),
		ReadOnly:   readOnly,
		SaveNotice: "All changes saved",
	}
	for i, st := range steps {
		page.Steps = append(page.Steps, view.StepNav{Title: st.Title, Slug: st.Slug, Current: i == idx})
	}
	if idx > 0 {
		page.PrevSlug = steps[idx-1].Slug
	}
	if idx < len(steps)-1 {
		page.NextSlug = steps[idx+1].Slug
	}

	if err := s.renderer.Step(w, page); err != nil {
		s.logger.Error("render step", logging.Err(err))
	}
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	env, ok := s.fetchForm(w, r)
	if !ok {
		return
	}
	page := s.reviewPage(env)
	if err := s.renderer.Review(w, page); err != nil {
		s.logger.Error("render review", logging.Err(err))
	}
}

func (s *Server) handleReviewSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	_, err := s.backend.Submit(r.Context(), sess)

	switch {
	case err == nil:
		http.Redirect(w, r, "/form/review", http.StatusFound)
	case errors.Is(err, backend.ErrAlreadySubmitted):
		// Success-equivalent: the form is locked either way.
		http.Redirect(w, r, "/form/review", http.StatusFound)
	case errors.Is(err, backend.ErrUnauthorized):
		http.Redirect(w, r, "/login", http.StatusFound)
	default:
		env, ok := s.fetchForm(w, r)
		if !ok {
			return
		}
		page := s.reviewPage(env)
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			page.Errors = verr.Fields
			page.Banner = "Submission was rejected. Fix the highlighted fields and try again."
		} else {
			s.logger.Error("submit failed", logging.Err(err))
			page.Banner = "Submission failed. Please try again."
		}
		if rerr := s.renderer.Review(w, page); rerr != nil {
			s.logger.Error("render review", logging.Err(rerr))
		}
	}
}

func (s *Server) reviewPage(env *backend.Envelope) *view.ReviewPage {
	page := &view.ReviewPage{
		AppName:   s.cfg.AppName,
		Percent:   schema.Progress(env.Structure, env.SavedData),
		Sections:  view.BuildReview(env.Structure, env.SavedData),
		Submitted: env.Meta.IsSubmitted,
	}
	if env.Meta.SubmittedAt != nil {
		page.SubmittedAt = env.Meta.SubmittedAt.Format("2 Jan 2006 15:04")
	}
	return page
}

// fetchForm loads the schema and snapshot, handling auth redirects.
func (s *Server) fetchForm(w http.ResponseWriter, r *http.Request) (*backend.Envelope, bool) {
	sess := sessionFrom(r.Context())
	env, err := s.backend.FetchForm(r.Context(), sess, s.cfg.FormID)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			s.clearAuthCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return nil, false
		}
		logging.LoggerFromContext(r.Context()).Error("fetch form", logging.Err(err))
		http.Error(w, "form is unavailable, try again later", http.StatusBadGateway)
		return nil, false
	}
	return env, true
}

// seedSelections backfills missing branch-selection values from child-value
// inference so that older snapshots, saved before the selection itself was
// persisted, still render their active branch.
func seedSelections(step *schema.Group, values schema.Values, rootAcr string) {
	inferred := schema.InferSelections(step, values, []string{rootAcr})
	if len(inferred) == 0 {
		return
	}
	var walk func(node *schema.Group, parts []string)
	walk = func(node *schema.Group, parts []string) {
		for i := range node.Fields {
			f := &node.Fields[i]
			if !f.Branching() {
				continue
			}
			parentKey := schema.LeafKey(parts, f.Label)
			if _, ok := values[parentKey].(string); ok && values[parentKey] != "" {
				continue
			}
			if opt, ok := inferred[schema.SelectionKey(parts, f.Label)]; ok {
				values[parentKey] = opt
			}
		}
		for i := range node.SubGroups {
			sg := &node.SubGroups[i]
			walk(sg, append(parts, schema.Acronym(sg.Title)))
		}
	}
	walk(step, []string{rootAcr})
}

func (s *Server) renderAuth(w http.ResponseWriter, render func(wr io.Writer, data *view.AuthPage) error, msg string) {
	if err := render(w, &view.AuthPage{AppName: s.cfg.AppName, Error: msg}); err != nil {
		s.logger.Error("render auth page", logging.Err(err))
	}
}
