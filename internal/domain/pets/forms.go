package pets

import (
	"context"

	"person-registry/internal/forms"
)

// InlinePrefix separa las claves del formset de mascotas dentro del envío.
const InlinePrefix = "pet"

// inlineFactory liga el subset declarado de campos de Pet a una persona
// concreta. person_id queda oculto: se asigna desde el padre al guardar.
var inlineFactory = forms.MustInlineOf(Pet{}, "person_id",
	[]forms.SchemaOption{forms.WithFields("name", "race", "created_date")},
	forms.SetOptions{Extra: 1, CanDelete: true},
)

// InlineForPerson instancia el formset de las mascotas de una persona, con
// las existentes como formularios iniciales en orden estable.
func InlineForPerson(personID string, existing []Pet) *forms.InlineFormSet {
	initial := make([]any, len(existing))
	for i := range existing {
		// punteros propios: la edición preserva ID y timestamps
		p := existing[i]
		initial[i] = &p
	}
	ifs := inlineFactory.ForParent(personID, initial...)
	ifs.UsePrefix(InlinePrefix)
	return ifs
}

// SaverFor y DeleterFor adaptan el service como persistencia del formset.
func SaverFor(svc *Service) forms.Saver {
	return func(ctx context.Context, instance any) error {
		p, ok := instance.(*Pet)
		if !ok {
			return ErrInvalidInput
		}
		return svc.Save(ctx, p)
	}
}

func DeleterFor(svc *Service) forms.Saver {
	return func(ctx context.Context, instance any) error {
		p, ok := instance.(*Pet)
		if !ok {
			return ErrInvalidInput
		}
		return svc.Delete(ctx, p.ID)
	}
}
