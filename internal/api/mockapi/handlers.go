package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/machtrueke/internal/crypto"
	"github.com/and161185/machtrueke/internal/limiter"
	"github.com/and161185/machtrueke/internal/model"
)

const maxAvatarBytes = 5 << 20

func (b *Backend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(recoverer(b.log))
	r.Use(logging(b.log))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", b.register)
		r.Post("/login", b.login)
		r.Get("/campuses", b.listCampuses)

		r.Group(func(r chi.Router) {
			r.Use(b.requireAuth)
			r.Get("/me", b.me)
			r.Put("/me", b.updateMe)
			r.Delete("/me", b.deleteMe)
			r.Post("/me/change-password", b.changePassword)
			r.Post("/me/avatar", b.uploadAvatar)
			r.Delete("/me/avatar", b.deleteAvatar)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(b.requireAuth)
		r.Get("/products/me", b.listProducts)
		r.Post("/likes", b.createLike)
		r.Get("/likes/mine", b.listLikes)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondDetail(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"detail": msg})
}

// register handles POST /auth/register. Like the real backend it answers
// with the created user only; clients log in afterwards.
func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	switch {
	case strings.TrimSpace(reg.Email) == "" || !strings.Contains(reg.Email, "@"):
		respondDetail(w, http.StatusBadRequest, "Email inválido")
		return
	case len(reg.Password) < 8:
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "password"}, "msg": "La contraseña debe tener al menos 8 caracteres."}},
		})
		return
	case reg.ConfirmPassword != "" && reg.ConfirmPassword != reg.Password:
		respondDetail(w, http.StatusBadRequest, "Las contraseñas no coinciden.")
		return
	}
	u, err := b.createUser(reg)
	if errors.Is(err, errEmailTaken) {
		respondDetail(w, http.StatusBadRequest, "Email ya registrado")
		return
	}
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "No se pudo crear la cuenta")
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

// login handles the OAuth2 password form of POST /auth/login. Repeated
// failures for the same email and client address are locked out.
func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid form")
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("username")))
	pass := r.PostForm.Get("password")
	ipHash := limiter.HashIP(clientIP(r))

	allowed, retry, err := b.lim.Allow(r.Context(), email, ipHash)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "internal")
		return
	}
	if !allowed {
		tooManyAttempts(w, retry)
		return
	}

	b.mu.Lock()
	id, ok := b.byEmail[email]
	var acc account
	if ok {
		acc = *b.users[id]
	}
	b.mu.Unlock()

	if !ok || !acc.pwd.Verify(pass) {
		if blocked, retry, ferr := b.lim.Failure(r.Context(), email, ipHash); ferr == nil && blocked {
			b.log.Info("login locked out", zap.String("email", email), zap.Duration("retry", retry))
			tooManyAttempts(w, retry)
			return
		}
		respondDetail(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	_ = b.lim.Success(r.Context(), email, ipHash)

	tok, err := b.IssueToken(id)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "internal")
		return
	}
	respondJSON(w, http.StatusOK, model.LoginResult{AccessToken: tok, TokenType: "bearer"})
}

func tooManyAttempts(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
	respondDetail(w, http.StatusTooManyRequests, "Demasiados intentos, intenta más tarde")
}

// clientIP strips the port from RemoteAddr. In-process requests have none.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	u, _ := b.User(id)
	respondJSON(w, http.StatusOK, u)
}

func (b *Backend) updateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	var upd model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(upd.Username) == "" {
		respondDetail(w, http.StatusBadRequest, "El nombre de usuario es obligatorio.")
		return
	}

	b.mu.Lock()
	acc, ok := b.users[id]
	if !ok {
		b.mu.Unlock()
		respondDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	acc.user.Username = strings.TrimSpace(upd.Username)
	acc.user.Bio = ""
	if upd.Bio != nil {
		acc.user.Bio = *upd.Bio
	}
	acc.user.CampusID = upd.CampusID
	u := acc.user
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, u)
}

func (b *Backend) deleteMe(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	b.mu.Lock()
	if acc, ok := b.users[id]; ok {
		delete(b.byEmail, acc.user.Email)
		delete(b.users, id)
		delete(b.matches, id)
	}
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, model.Message{Message: "Cuenta eliminada"})
}

func (b *Backend) changePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	var pc model.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil || pc.OldPassword == "" || pc.NewPassword == "" {
		respondDetail(w, http.StatusBadRequest, "Campos incompletos")
		return
	}
	if len(pc.NewPassword) < 8 {
		respondDetail(w, http.StatusBadRequest, "La nueva contraseña debe tener al menos 8 caracteres.")
		return
	}

	b.mu.Lock()
	var okOld bool
	if acc, ok := b.users[id]; ok {
		okOld = acc.pwd.Verify(pc.OldPassword)
	}
	b.mu.Unlock()
	if !okOld {
		respondDetail(w, http.StatusBadRequest, "La contraseña actual es incorrecta")
		return
	}

	h, err := crypto.HashPassword(pc.NewPassword)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "internal")
		return
	}
	b.mu.Lock()
	if acc, ok := b.users[id]; ok {
		acc.pwd = h
	}
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, model.Message{Message: "Contraseña actualizada"})
}

func (b *Backend) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		respondDetail(w, http.StatusBadRequest, "Se esperaba un formulario multipart")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "Falta el archivo")
		return
	}
	defer f.Close()
	if hdr.Size == 0 {
		respondDetail(w, http.StatusBadRequest, "Archivo vacío")
		return
	}

	url := fmt.Sprintf("/static/avatars/%s%s", newID(), strings.ToLower(filepath.Ext(hdr.Filename)))
	b.mu.Lock()
	acc, ok := b.users[id]
	if !ok {
		b.mu.Unlock()
		respondDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	acc.user.AvatarURL = url
	u := acc.user
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, u)
}

func (b *Backend) deleteAvatar(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	b.mu.Lock()
	if acc, ok := b.users[id]; ok {
		acc.user.AvatarURL = ""
	}
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, model.Message{Message: "Avatar eliminado"})
}

func (b *Backend) listCampuses(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	out := make([]model.Campus, 0, len(b.campuses))
	for _, c := range b.campuses {
		if q == "" || strings.Contains(strings.ToLower(c.Code), q) || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (b *Backend) listProducts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	items := append([]model.Card(nil), b.cards...)
	b.mu.Unlock()
	respondJSON(w, http.StatusOK, model.Items[model.Card]{Items: items})
}

// createLike handles POST /api/likes. A repeated like on the same product
// updates the existing match instead of adding a second one.
func (b *Backend) createLike(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	var req struct {
		ProductID model.ID `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		respondDetail(w, http.StatusUnprocessableEntity, "productId is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var card *model.Card
	for i := range b.cards {
		if b.cards[i].ID == req.ProductID {
			card = &b.cards[i]
			break
		}
	}
	if card == nil {
		respondDetail(w, http.StatusNotFound, "Producto no encontrado")
		return
	}

	m := model.Match{
		ID:        newID(),
		Product:   model.MatchProduct{ID: card.ID, Title: card.Title, Cover: card.Cover()},
		Owner:     card.Owner,
		Note:      "Nuevo match",
		CreatedAt: b.now().UTC(),
	}
	list := b.matches[id]
	for i := range list {
		if list[i].Product.ID == card.ID {
			m.ID = list[i].ID
			list[i] = m
			respondJSON(w, http.StatusOK, m)
			return
		}
	}
	b.matches[id] = append([]model.Match{m}, list...)
	respondJSON(w, http.StatusCreated, m)
}

func (b *Backend) listLikes(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	respondJSON(w, http.StatusOK, model.Items[model.Match]{Items: b.Matches(id)})
}
