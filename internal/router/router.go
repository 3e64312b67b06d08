package router

import (
	"database/sql"
	"net/http"

	mem "person-registry/internal/adapters/storage/memory"
	pg "person-registry/internal/adapters/storage/postgres"
	"person-registry/internal/domain/persons"
	"person-registry/internal/domain/pets"
	"person-registry/internal/middleware"
	"person-registry/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	// DB opcional: con Postgres usa esos repos, sin él cae a in-memory.
	DB *sql.DB

	Log logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.New(logger.Options{Level: logger.Info})
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		personRepo persons.Repository
		petRepo    pets.Repository
	)
	if opts.DB != nil {
		personRepo = pg.NewPersonsRepo(opts.DB)
		petRepo = pg.NewPetsRepo(opts.DB)
	} else {
		personRepo = mem.NewPersonRepo()
		petRepo = mem.NewPetRepo()
	}

	personsSvc := persons.NewService(personRepo)
	petsSvc := pets.NewService(petRepo, personsSvc)

	// borrar una persona arrastra sus mascotas
	personsSvc.SetDependentPurger(petsSvc)

	persons.RegisterRoutes(r, personsSvc)
	pets.RegisterRoutes(r, petsSvc, personsSvc)

	return r
}
