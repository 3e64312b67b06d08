package forms

import "errors"

var (
	// ErrInvalid lo devuelve Save cuando el formulario no pasó validación.
	ErrInvalid = errors.New("form data is not valid")

	// ErrNotBound lo devuelven IsValid/Save sobre formularios sin datos.
	ErrNotBound = errors.New("form is not bound to submitted data")

	// ErrNoSaver lo devuelve Save cuando no se configuró persistencia.
	ErrNoSaver = errors.New("form has no saver configured")

	// ErrNoParent lo devuelve el inline formset al guardar sin instancia padre.
	ErrNoParent = errors.New("inline formset requires an existing parent instance")
)

// NonFieldKey agrupa errores que no pertenecen a un campo concreto
// (management data del formset, límites min/max, etc.).
const NonFieldKey = "__all__"

// FieldErrors mapea nombre de campo => lista de mensajes legibles.
type FieldErrors map[string][]string

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// HasErrors informa si hay al menos un mensaje registrado.
func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// Mensajes de validación genéricos.
const (
	msgRequired      = "this field is required"
	msgInvalidInt    = "enter a whole number"
	msgInvalidNumber = "enter a number"
	msgInvalidBool   = "enter a valid boolean value"
	msgInvalidDate   = "enter a valid date (YYYY-MM-DD)"
	msgInvalidTime   = "enter a valid date/time (RFC 3339)"
	msgInvalidChoice = "select a valid choice"
	msgInvalidEmail  = "enter a valid email address"
	msgManagement    = "management data is missing or invalid"
)
