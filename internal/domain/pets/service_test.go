package pets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"person-registry/internal/adapters/storage/memory"
	"person-registry/internal/domain/persons"
	"person-registry/internal/domain/pets"
)

func newServices(t *testing.T) (*pets.Service, *persons.Service) {
	t.Helper()
	personsSvc := persons.NewService(memory.NewPersonRepo())
	petsSvc := pets.NewService(memory.NewPetRepo(), personsSvc)
	return petsSvc, personsSvc
}

func registerPerson(t *testing.T, svc *persons.Service) string {
	t.Helper()
	p := &persons.Person{FirstName: "Laura", LastName: "Gómez", Email: "laura@example.com"}
	if err := svc.Save(context.Background(), p); err != nil {
		t.Fatalf("save person: %v", err)
	}
	return p.ID
}

func validPet(personID string) *pets.Pet {
	return &pets.Pet{
		PersonID:    personID,
		Name:        "Rex",
		Race:        pets.RaceDog,
		CreatedDate: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_SaveRejectsUnknownPerson(t *testing.T) {
	svc, _ := newServices(t)

	err := svc.Save(context.Background(), validPet("nope"))
	if !errors.Is(err, pets.ErrPersonNotFound) {
		t.Fatalf("Save err = %v, want ErrPersonNotFound", err)
	}
}

func TestService_SaveRejectsEmptyPersonID(t *testing.T) {
	svc, _ := newServices(t)

	err := svc.Save(context.Background(), validPet("  "))
	if !errors.Is(err, pets.ErrPersonNotFound) {
		t.Fatalf("Save err = %v, want ErrPersonNotFound", err)
	}
}

func TestService_SaveForExistingPerson(t *testing.T) {
	svc, personsSvc := newServices(t)
	personID := registerPerson(t, personsSvc)

	p := validPet(personID)
	if err := svc.Save(context.Background(), p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("pet after save: %+v", p)
	}

	listed, err := svc.ListByPerson(context.Background(), personID)
	if err != nil {
		t.Fatalf("ListByPerson: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "Rex" {
		t.Fatalf("listed = %+v", listed)
	}
}

func TestService_InTxRollsBackOnError(t *testing.T) {
	svc, personsSvc := newServices(t)
	personID := registerPerson(t, personsSvc)

	boom := errors.New("boom")
	err := svc.InTx(context.Background(), func(txSvc *pets.Service) error {
		if err := txSvc.Save(context.Background(), validPet(personID)); err != nil {
			t.Fatalf("Save inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}

	listed, err := svc.ListByPerson(context.Background(), personID)
	if err != nil {
		t.Fatalf("ListByPerson: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("failed tx left %d pet(s) persisted", len(listed))
	}
}
