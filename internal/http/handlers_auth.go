package http

import (
	"errors"
	"net/http"

	"budgetadvisor/internal/core"
	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !IdentityFrom(r.Context()).IsZero() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Log in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	creds := ParseCredentials(r.PostForm)

	id, err := s.credentials.Verify(ctx, creds.Username, creds.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		s.appMetrics.loginFailures.Add(1)
		log.FromContext(ctx).WarnContext(ctx, "Login rejected",
			log.FieldComponent, log.ComponentAuth,
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		s.render(w, r, http.StatusUnauthorized, "login.html", pageData{
			Title:    "Log in",
			Error:    "Invalid username or password",
			Username: creds.Username,
		})
		return
	}
	if err != nil {
		s.authFailure(w, r, "login.html", "Log in", creds.Username, log.OpLogin, err)
		return
	}

	if err := s.sessions.Issue(w, id); err != nil {
		s.authFailure(w, r, "login.html", "Log in", creds.Username, log.OpLogin, err)
		return
	}
	s.appMetrics.logins.Add(1)
	log.FromContext(ctx).InfoContext(ctx, "User logged in",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, id.UserID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if !IdentityFrom(r.Context()).IsZero() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Create an account"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	creds := ParseCredentials(r.PostForm)

	fail := func(status int, msg string) {
		s.render(w, r, status, "register.html", pageData{
			Title:    "Create an account",
			Error:    msg,
			Username: creds.Username,
		})
	}

	if creds.Password != creds.Confirm {
		fail(http.StatusUnprocessableEntity, "Passwords do not match")
		return
	}

	id, err := s.credentials.Create(ctx, creds.Username, creds.Password)
	switch {
	case errors.Is(err, services.ErrAlreadyExists):
		fail(http.StatusConflict, "That username is already taken")
		return
	case errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrUsernameTooLong),
		errors.Is(err, core.ErrEmptyPassword),
		errors.Is(err, services.ErrPasswordTooLong):
		fail(http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.authFailure(w, r, "register.html", "Create an account", creds.Username, log.OpRegister, err)
		return
	}

	if err := s.sessions.Issue(w, id); err != nil {
		s.authFailure(w, r, "register.html", "Create an account", creds.Username, log.OpRegister, err)
		return
	}
	s.appMetrics.registrations.Add(1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, page, title, username, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Authentication step failed", err,
		log.ComponentAuth, op, log.NewFields())
	s.render(w, r, http.StatusInternalServerError, page, pageData{
		Title:    title,
		Error:    "Something went wrong, please try again",
		Username: username,
	})
}
