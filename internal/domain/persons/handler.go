package persons

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"person-registry/internal/forms"

	"github.com/go-chi/chi/v5"
)

const msgEmailTaken = "a person with this email is already registered"

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/persons", func(pr chi.Router) {
		// Descripción del formulario en blanco (la renderiza la vista)
		pr.Get("/form", renderFormHandler())

		pr.Post("/", createPersonHandler(svc))
		pr.Get("/", listPersonsHandler(svc))

		// Formset: alta por lotes en un solo envío
		pr.Get("/batch/form", renderFormSetHandler())
		pr.Post("/batch", submitFormSetHandler(svc))

		pr.Get("/{personID}", getPersonHandler(svc))
		pr.Put("/{personID}", updatePersonHandler(svc))
		pr.Delete("/{personID}", deletePersonHandler(svc))
	})
}

type personResponse struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type formResponse struct {
	Model  string                `json:"model"`
	Fields []forms.RenderedField `json:"fields"`
}

type errorsResponse struct {
	Errors forms.FieldErrors `json:"errors"`
}

type formSetErrorsResponse struct {
	Errors     forms.FieldErrors   `json:"errors,omitempty"`
	FormErrors []forms.FieldErrors `json:"form_errors,omitempty"`
}

func renderFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, formResponse{
			Model:  "person",
			Fields: Form().Render(),
		})
	}
}

func renderFormSetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, FormSet().Render())
	}
}

func createPersonHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		f := Form(forms.WithData(r.PostForm), forms.WithSaver(SaverFor(svc)))
		if !f.IsValid() {
			writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: f.Errors})
			return
		}

		instance, err := f.Save(r.Context())
		if err != nil {
			writeSaveError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPersonResponse(*instance.(*Person)))
	}
}

func updatePersonHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "personID"))
		if err != nil {
			http.Error(w, "person not found", http.StatusNotFound)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		f := Form(
			forms.WithData(r.PostForm),
			forms.WithInstance(&p),
			forms.WithSaver(SaverFor(svc)),
		)
		if !f.IsValid() {
			writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: f.Errors})
			return
		}

		if _, err := f.Save(r.Context()); err != nil {
			writeSaveError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPersonResponse(p))
	}
}

func submitFormSetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		fs := FormSet().Bind(r.PostForm, forms.DefaultPrefix)
		valid := fs.IsValid()
		if valid {
			// la unicidad de email se verifica antes de persistir nada,
			// para que el lote entero se acepte o se rechace
			ok, err := checkBatchEmails(r.Context(), svc, fs)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			valid = ok
		}
		if !valid {
			writeJSON(w, http.StatusBadRequest, formSetErrorsResponse{
				Errors:     fs.Errors,
				FormErrors: fs.FormErrors(),
			})
			return
		}

		var res forms.SaveResult
		err := svc.InTx(r.Context(), func(txSvc *Service) error {
			var err error
			res, err = fs.Save(r.Context(), forms.Persister{Save: SaverFor(txSvc)})
			return err
		})
		if err != nil {
			writeSaveError(w, err)
			return
		}

		out := make([]personResponse, 0, len(res.Saved))
		for _, inst := range res.Saved {
			out = append(out, toPersonResponse(*inst.(*Person)))
		}

		// un envío válido sin formularios tocados es un no-op
		status := http.StatusOK
		if len(out) > 0 {
			status = http.StatusCreated
		}
		writeJSON(w, status, out)
	}
}

func listPersonsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]personResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPersonResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPersonHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "personID"))
		if err != nil {
			http.Error(w, "person not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toPersonResponse(p))
	}
}

func deletePersonHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), chi.URLParam(r, "personID"))
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "person not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// checkBatchEmails valida la unicidad de email del lote completo antes de
// persistir: colisiones dentro del mismo envío y contra lo ya registrado se
// marcan como error de campo sobre el sub-formulario que las introduce.
func checkBatchEmails(ctx context.Context, svc *Service, fs *forms.FormSet) (bool, error) {
	ok := true
	seen := make(map[string]bool)
	for _, f := range fs.Forms() {
		if !f.HasChanged() {
			continue
		}
		raw, _ := f.CleanedData["email"].(string)
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		taken, err := svc.EmailTaken(ctx, email, "")
		if err != nil {
			return false, err
		}
		if seen[email] || taken {
			f.Errors["email"] = append(f.Errors["email"], msgEmailTaken)
			ok = false
		}
		seen[email] = true
	}
	return ok, nil
}

// writeSaveError mapea los errores de persistencia del formulario a HTTP.
// La unicidad de email se devuelve como error de campo, igual que los
// fallos de validación.
func writeSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusBadRequest, errorsResponse{
			Errors: forms.FieldErrors{"email": {msgEmailTaken}},
		})
	case errors.Is(err, forms.ErrInvalid), errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toPersonResponse(p Person) personResponse {
	return personResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		BirthDate: p.BirthDate,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// writeJSON se repite en los handlers de cada módulo a propósito, para no
// crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
