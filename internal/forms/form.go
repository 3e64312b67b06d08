package forms

import (
	"context"
	"net/url"
	"reflect"
	"strings"
)

// Saver persiste una instancia validada (puntero al struct del modelo).
// Normalmente envuelve al service del dominio correspondiente.
type Saver func(ctx context.Context, instance any) error

// Form es un formulario de registro único ligado a un Schema. Puede venir
// con una instancia existente (edición) y/o con datos enviados (bound).
type Form struct {
	schema   Schema
	data     url.Values
	prefix   string
	instance any // puntero al struct del modelo, o nil
	saver    Saver

	bound     bool
	validated bool
	valid     bool

	// CleanedData queda poblado tras IsValid: nombre de campo => valor
	// coercionado (nil para opcionales vacíos).
	CleanedData map[string]any

	// Errors queda poblado tras IsValid con los fallos por campo.
	Errors FieldErrors
}

// FormOption configura un Form al construirlo.
type FormOption func(*Form)

// WithData liga el formulario a datos enviados (bound form).
func WithData(data url.Values) FormOption {
	return func(f *Form) {
		f.data = data
		f.bound = true
	}
}

// WithInstance liga el formulario a una instancia existente para edición.
// instance debe ser puntero al struct del modelo del schema.
func WithInstance(instance any) FormOption {
	return func(f *Form) { f.instance = instance }
}

// WithPrefix antepone "<prefix>-" a todas las claves del envío. Lo usan
// los formsets para separar sub-formularios.
func WithPrefix(prefix string) FormOption {
	return func(f *Form) { f.prefix = prefix }
}

// WithSaver configura la persistencia que usará Save.
func WithSaver(s Saver) FormOption {
	return func(f *Form) { f.saver = s }
}

// NewForm construye un formulario sobre el schema.
func (s Schema) NewForm(opts ...FormOption) *Form {
	f := &Form{
		schema:      s,
		Errors:      FieldErrors{},
		CleanedData: map[string]any{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsBound informa si el formulario tiene datos enviados.
func (f *Form) IsBound() bool { return f.bound }

// Schema expone el schema del formulario.
func (f *Form) Schema() Schema { return f.schema }

func (f *Form) key(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "-" + name
}

// raw devuelve el valor enviado para un campo, recortado. Las claves que no
// pertenecen al schema simplemente no se consultan nunca (whitelisting).
func (f *Form) raw(field Field) string {
	if f.data == nil {
		return ""
	}
	return strings.TrimSpace(f.data.Get(f.key(field.Name)))
}

// IsValid valida todos los campos del schema contra los datos enviados.
// Devuelve false sobre formularios sin datos. Idempotente: valida una vez.
func (f *Form) IsValid() bool {
	if f.validated {
		return f.valid
	}
	f.validated = true

	if !f.bound {
		f.valid = false
		return false
	}

	f.valid = true
	for _, field := range f.schema.Fields {
		raw := f.raw(field)
		if raw == "" {
			// checkbox sin marcar => false, nunca error de required
			if field.Type == TypeBoolean {
				f.CleanedData[field.Name] = false
				continue
			}
			if field.Required {
				f.Errors.add(field.Name, msgRequired)
				f.valid = false
				continue
			}
			f.CleanedData[field.Name] = nil
			continue
		}

		value, msg := coerce(field, raw)
		if msg != "" {
			f.Errors.add(field.Name, msg)
			f.valid = false
			continue
		}
		f.CleanedData[field.Name] = value
	}
	return f.valid
}

// HasChanged informa si algún valor enviado difiere del valor inicial de la
// instancia (o de vacío si no hay instancia). Un formulario extra sin tocar
// devuelve false, que es lo que permite ignorarlo dentro de un formset.
func (f *Form) HasChanged() bool {
	if !f.bound {
		return false
	}
	for _, field := range f.schema.Fields {
		if normalized(field, f.raw(field)) != normalized(field, render(field, f.instance)) {
			return true
		}
	}
	return false
}

// normalized iguala representaciones equivalentes antes de comparar.
func normalized(field Field, raw string) string {
	if field.Type == TypeBoolean {
		switch raw {
		case "true", "on", "1", "yes":
			return "on"
		default:
			return ""
		}
	}
	return raw
}

// Instance aplica los datos limpios sobre dst (puntero al struct del modelo)
// sin persistir. Requiere IsValid previo y exitoso.
func (f *Form) Instance(dst any) error {
	if !f.validated {
		if !f.IsValid() {
			return ErrInvalid
		}
	} else if !f.valid {
		return ErrInvalid
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != f.schema.typ {
		return ErrInvalid
	}
	elem := rv.Elem()
	for _, field := range f.schema.Fields {
		value, ok := f.CleanedData[field.Name]
		if !ok {
			continue
		}
		if err := assign(elem, field, value); err != nil {
			return err
		}
	}
	return nil
}

// Save valida, construye la instancia (nueva o la existente) y la entrega
// al Saver configurado. Devuelve el puntero a la instancia persistida.
func (f *Form) Save(ctx context.Context) (any, error) {
	if !f.bound {
		return nil, ErrNotBound
	}
	if !f.IsValid() {
		return nil, ErrInvalid
	}
	if f.saver == nil {
		return nil, ErrNoSaver
	}

	target := f.instance
	if target == nil {
		target = f.schema.newInstance()
	}
	if err := f.Instance(target); err != nil {
		return nil, err
	}
	if err := f.saver(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// RenderedField es la proyección serializable de un campo, con su valor
// actual (inicial o enviado). La consume la capa de vistas.
type RenderedField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	MaxLen   int       `json:"max_length,omitempty"`
	Choices  []string  `json:"choices,omitempty"`
	Help     string    `json:"help,omitempty"`
	Hidden   bool      `json:"hidden,omitempty"`
	Unique   bool      `json:"unique,omitempty"`
	Key      string    `json:"key"`
	Value    string    `json:"value,omitempty"`
}

// Render produce la descripción de cada campo del formulario.
func (f *Form) Render() []RenderedField {
	out := make([]RenderedField, 0, len(f.schema.Fields))
	for _, field := range f.schema.Fields {
		value := render(field, f.instance)
		if f.bound {
			value = f.raw(field)
		}
		out = append(out, RenderedField{
			Name:     field.Name,
			Label:    field.Label,
			Type:     field.Type,
			Required: field.Required,
			MaxLen:   field.MaxLen,
			Choices:  field.Choices,
			Help:     field.Help,
			Hidden:   field.Hidden,
			Unique:   field.Unique,
			Key:      f.key(field.Name),
			Value:    value,
		})
	}
	return out
}
