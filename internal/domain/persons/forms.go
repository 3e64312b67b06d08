package persons

import (
	"context"

	"person-registry/internal/forms"
)

// formSchema se deriva del modelo completo: todos los campos editables.
var formSchema = forms.MustSchemaOf(Person{})

// Form construye el formulario de registro único de Person.
func Form(opts ...forms.FormOption) *forms.Form {
	return formSchema.NewForm(opts...)
}

// FormSet construye el formset de personas: colección de formularios de
// largo variable con un formulario extra en blanco al renderizar.
func FormSet() *forms.FormSet {
	return forms.NewSet(formSchema, forms.SetOptions{Extra: 1})
}

// SaverFor adapta el service como destino de persistencia de formularios.
func SaverFor(svc *Service) forms.Saver {
	return func(ctx context.Context, instance any) error {
		p, ok := instance.(*Person)
		if !ok {
			return ErrInvalidInput
		}
		return svc.Save(ctx, p)
	}
}
