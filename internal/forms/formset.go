package forms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultMaxForms limita cuántos sub-formularios acepta un formset cuando
// el caller no configura MaxForms.
const DefaultMaxForms = 1000

// DefaultPrefix separa las claves de un formset cuando el caller no indica
// uno propio al hacer Bind.
const DefaultPrefix = "form"

// SetOptions configura un FormSet.
type SetOptions struct {
	// Extra es la cantidad de formularios en blanco al renderizar sin
	// datos. Por defecto 1.
	Extra int

	// MinForms exige una cantidad mínima de formularios con cambios.
	MinForms int

	// MaxForms rechaza envíos con más formularios que este tope.
	// 0 usa DefaultMaxForms.
	MaxForms int

	// CanDelete habilita la marca de borrado "<prefijo>-<n>-delete".
	CanDelete bool
}

// Persister agrupa las operaciones de persistencia que usa FormSet.Save.
type Persister struct {
	Save   Saver
	Delete Saver // requerido solo con CanDelete
}

// SaveResult reporta el efecto de un Save de formset.
type SaveResult struct {
	// Saved contiene los punteros a instancias creadas o actualizadas,
	// en el orden de los sub-formularios.
	Saved []any

	// Deleted contiene las instancias existentes eliminadas por la
	// marca de borrado.
	Deleted []any
}

// FormSet maneja una colección acotada de formularios del mismo schema que
// se valida y persiste como una sola unidad de envío.
type FormSet struct {
	schema  Schema
	opts    SetOptions
	initial []any // instancias existentes (punteros), una por formulario inicial

	prefix string
	data   url.Values
	bound  bool

	forms     []*Form
	validated bool
	valid     bool

	// beforeSave corre sobre cada instancia construida antes de
	// persistirla; lo usa el inline formset para fijar la referencia
	// al padre.
	beforeSave func(instance any) error

	// Errors acumula los fallos a nivel de set (management data,
	// límites min/max) bajo NonFieldKey.
	Errors FieldErrors
}

// NewSet construye un formset sin datos sobre el schema dado.
func NewSet(schema Schema, opts SetOptions) *FormSet {
	if opts.Extra == 0 {
		opts.Extra = 1
	}
	if opts.MaxForms == 0 {
		opts.MaxForms = DefaultMaxForms
	}
	return &FormSet{
		schema: schema,
		opts:   opts,
		prefix: DefaultPrefix,
		Errors: FieldErrors{},
	}
}

// WithInitial liga instancias existentes como formularios iniciales.
func (fs *FormSet) WithInitial(instances ...any) *FormSet {
	fs.initial = instances
	fs.forms = nil
	return fs
}

// UsePrefix cambia el prefijo de claves sin ligar datos (render inicial).
func (fs *FormSet) UsePrefix(prefix string) *FormSet {
	if prefix != "" {
		fs.prefix = prefix
		fs.forms = nil
	}
	return fs
}

// Bind liga el formset a datos enviados bajo el prefijo dado.
func (fs *FormSet) Bind(data url.Values, prefix string) *FormSet {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	fs.data = data
	fs.prefix = prefix
	fs.bound = true
	fs.forms = nil
	fs.validated = false
	fs.Errors = FieldErrors{}
	return fs
}

// Claves del management data.
func (fs *FormSet) totalKey() string   { return fs.prefix + "-total-forms" }
func (fs *FormSet) initialKey() string { return fs.prefix + "-initial-forms" }

func (fs *FormSet) formPrefix(i int) string {
	return fmt.Sprintf("%s-%d", fs.prefix, i)
}

// TotalForms devuelve cuántos sub-formularios tiene el set: los declarados
// en el management data si está bound, o iniciales+extra si no.
func (fs *FormSet) TotalForms() int {
	if !fs.bound {
		return len(fs.initial) + fs.opts.Extra
	}
	n, err := strconv.Atoi(fs.data.Get(fs.totalKey()))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Forms materializa los sub-formularios. Cada uno lleva el prefijo
// "<prefijo>-<n>" y, si corresponde, su instancia inicial.
func (fs *FormSet) Forms() []*Form {
	if fs.forms != nil {
		return fs.forms
	}
	total := fs.TotalForms()
	if total < 0 {
		return nil
	}
	forms := make([]*Form, 0, total)
	for i := 0; i < total; i++ {
		opts := []FormOption{WithPrefix(fs.formPrefix(i))}
		if i < len(fs.initial) {
			opts = append(opts, WithInstance(fs.initial[i]))
		}
		if fs.bound {
			opts = append(opts, WithData(fs.data))
		}
		forms = append(forms, fs.schema.NewForm(opts...))
	}
	fs.forms = forms
	return forms
}

// markedForDeletion informa si el sub-formulario i trae la marca de borrado.
func (fs *FormSet) markedForDeletion(i int) bool {
	if !fs.opts.CanDelete || !fs.bound {
		return false
	}
	switch fs.data.Get(fs.formPrefix(i) + "-delete") {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// IsValid valida el management data y cada sub-formulario con cambios.
// Los formularios extra sin tocar y los marcados para borrar no se validan.
func (fs *FormSet) IsValid() bool {
	if fs.validated {
		return fs.valid
	}
	fs.validated = true
	fs.valid = false

	if !fs.bound {
		fs.Errors.add(NonFieldKey, msgManagement)
		return false
	}
	total := fs.TotalForms()
	if total < 0 {
		fs.Errors.add(NonFieldKey, msgManagement)
		return false
	}
	if total > fs.opts.MaxForms {
		fs.Errors.add(NonFieldKey, fmt.Sprintf("please submit at most %d forms", fs.opts.MaxForms))
		return false
	}

	fs.valid = true
	changed := 0
	for i, form := range fs.Forms() {
		if fs.markedForDeletion(i) {
			continue
		}
		if !form.HasChanged() {
			continue
		}
		changed++
		if !form.IsValid() {
			fs.valid = false
		}
	}
	if changed < fs.opts.MinForms {
		fs.Errors.add(NonFieldKey, fmt.Sprintf("please submit at least %d forms", fs.opts.MinForms))
		fs.valid = false
	}
	return fs.valid
}

// FormErrors devuelve los errores por sub-formulario, índice a índice.
// Los formularios sin cambios quedan con un mapa vacío.
func (fs *FormSet) FormErrors() []FieldErrors {
	out := make([]FieldErrors, 0, len(fs.Forms()))
	for _, form := range fs.Forms() {
		out = append(out, form.Errors)
	}
	return out
}

// Save persiste los sub-formularios con cambios y borra los marcados.
// Un envío válido sin formularios tocados es un no-op: devuelve un
// resultado vacío sin error.
func (fs *FormSet) Save(ctx context.Context, p Persister) (SaveResult, error) {
	var res SaveResult
	if !fs.bound {
		return res, ErrNotBound
	}
	if !fs.IsValid() {
		return res, ErrInvalid
	}
	if p.Save == nil {
		return res, ErrNoSaver
	}

	for i, form := range fs.Forms() {
		if fs.markedForDeletion(i) {
			// la marca sobre un formulario nuevo simplemente lo ignora
			if form.instance == nil {
				continue
			}
			if p.Delete == nil {
				return res, ErrNoSaver
			}
			if err := p.Delete(ctx, form.instance); err != nil {
				return res, err
			}
			res.Deleted = append(res.Deleted, form.instance)
			continue
		}
		if !form.HasChanged() {
			continue
		}

		target := form.instance
		if target == nil {
			target = fs.schema.newInstance()
		}
		if err := form.Instance(target); err != nil {
			return res, err
		}
		if fs.beforeSave != nil {
			if err := fs.beforeSave(target); err != nil {
				return res, err
			}
		}
		if err := p.Save(ctx, target); err != nil {
			return res, err
		}
		res.Saved = append(res.Saved, target)
	}
	return res, nil
}

// RenderedSet es la proyección serializable de un formset: el management
// data que el cliente debe reenviar y la descripción de cada formulario.
type RenderedSet struct {
	Prefix       string            `json:"prefix"`
	TotalForms   int               `json:"total_forms"`
	InitialForms int               `json:"initial_forms"`
	MinForms     int               `json:"min_forms"`
	MaxForms     int               `json:"max_forms"`
	CanDelete    bool              `json:"can_delete"`
	Management   map[string]string `json:"management"`
	Forms        [][]RenderedField `json:"forms"`
}

// Render produce la descripción completa del formset.
func (fs *FormSet) Render() RenderedSet {
	forms := fs.Forms()
	rendered := make([][]RenderedField, 0, len(forms))
	for _, form := range forms {
		rendered = append(rendered, form.Render())
	}
	total := fs.TotalForms()
	// management data ilegible: se rinde vacío, no un total negativo
	if total < 0 {
		total = 0
	}
	return RenderedSet{
		Prefix:       fs.prefix,
		TotalForms:   total,
		InitialForms: len(fs.initial),
		MinForms:     fs.opts.MinForms,
		MaxForms:     fs.opts.MaxForms,
		CanDelete:    fs.opts.CanDelete,
		Management: map[string]string{
			fs.totalKey():   strconv.Itoa(total),
			fs.initialKey(): strconv.Itoa(len(fs.initial)),
		},
		Forms: rendered,
	}
}
