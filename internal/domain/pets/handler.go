package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"person-registry/internal/domain/persons"
	"person-registry/internal/forms"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, personsSvc *persons.Service) {
	// Las mascotas se editan siempre dentro del contexto de su persona.
	r.Route("/persons/{personID}/pets", func(pr chi.Router) {
		pr.Get("/", listPetsHandler(svc, personsSvc))
		pr.Get("/formset", renderInlineHandler(svc, personsSvc))
		pr.Post("/", submitInlineHandler(svc, personsSvc))
	})
}

type petResponse struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Name        string    `json:"name"`
	Race        Race      `json:"race"`
	CreatedDate time.Time `json:"created_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type inlineSaveResponse struct {
	Saved   []petResponse `json:"saved"`
	Deleted int           `json:"deleted"`
}

type formSetErrorsResponse struct {
	Errors     forms.FieldErrors   `json:"errors,omitempty"`
	FormErrors []forms.FieldErrors `json:"form_errors,omitempty"`
}

func listPetsHandler(svc *Service, personsSvc *persons.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		person, ok := requirePerson(w, r, personsSvc)
		if !ok {
			return
		}

		items, err := svc.ListByPerson(r.Context(), person.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func renderInlineHandler(svc *Service, personsSvc *persons.Service) http.HandlerFunc {
	// Render inicial: mascotas existentes + formularios extra en blanco,
	// con el management data que el cliente debe reenviar.
	return func(w http.ResponseWriter, r *http.Request) {
		person, ok := requirePerson(w, r, personsSvc)
		if !ok {
			return
		}

		existing, err := svc.ListByPerson(r.Context(), person.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, InlineForPerson(person.ID, existing).Render())
	}
}

func submitInlineHandler(svc *Service, personsSvc *persons.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		person, ok := requirePerson(w, r, personsSvc)
		if !ok {
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		existing, err := svc.ListByPerson(r.Context(), person.ID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ifs := InlineForPerson(person.ID, existing).Bind(r.PostForm, InlinePrefix)
		if !ifs.IsValid() {
			writeJSON(w, http.StatusBadRequest, formSetErrorsResponse{
				Errors:     ifs.Errors,
				FormErrors: ifs.FormErrors(),
			})
			return
		}

		// todo el envío corre en una transacción: o se aplica completo o
		// no queda nada a medias
		var res forms.SaveResult
		err = svc.InTx(r.Context(), func(txSvc *Service) error {
			var err error
			res, err = ifs.Save(r.Context(), forms.Persister{
				Save:   SaverFor(txSvc),
				Delete: DeleterFor(txSvc),
			})
			return err
		})
		switch {
		case errors.Is(err, forms.ErrNoParent), errors.Is(err, ErrPersonNotFound):
			http.Error(w, "person not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := inlineSaveResponse{Saved: make([]petResponse, 0, len(res.Saved)), Deleted: len(res.Deleted)}
		for _, inst := range res.Saved {
			out.Saved = append(out.Saved, toPetResponse(*inst.(*Pet)))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// requirePerson resuelve la persona de la URL o corta con 404.
func requirePerson(w http.ResponseWriter, r *http.Request, personsSvc *persons.Service) (persons.Person, bool) {
	person, err := personsSvc.GetByID(r.Context(), chi.URLParam(r, "personID"))
	if err != nil {
		http.Error(w, "person not found", http.StatusNotFound)
		return persons.Person{}, false
	}
	return person, true
}

func toPetResponse(p Pet) petResponse {
	return petResponse{
		ID:          p.ID,
		PersonID:    p.PersonID,
		Name:        p.Name,
		Race:        p.Race,
		CreatedDate: p.CreatedDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// writeJSON se repite en los handlers de cada módulo a propósito, para no
// crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
