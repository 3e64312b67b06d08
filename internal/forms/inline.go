package forms

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
)

// InlineFactory produce formsets de una entidad dependiente ligados a una
// instancia concreta de su entidad padre. El campo de referencia al padre
// (fk) queda fuera del formulario: se asigna automáticamente al guardar y
// cualquier valor enviado para él se ignora.
type InlineFactory struct {
	schema Schema
	opts   SetOptions
	fk     Field
}

// InlineOf construye la fábrica para el modelo dependiente. fk es el nombre
// de formulario del campo que referencia al padre; schemaOpts normalmente
// incluye WithFields con el subset editable (que no debe contener fk).
func InlineOf(child any, fk string, schemaOpts []SchemaOption, setOpts SetOptions) (*InlineFactory, error) {
	full, err := SchemaOf(child)
	if err != nil {
		return nil, err
	}
	fkField, ok := full.field(fk)
	if !ok {
		return nil, fmt.Errorf("forms: model %s has no field %q to bind the parent", full.Model, fk)
	}
	if kind := fkField.goType.Kind(); kind != reflect.String {
		return nil, fmt.Errorf("forms: parent reference %q must be a string field, got %s", fk, fkField.goType)
	}

	schema, err := SchemaOf(child, schemaOpts...)
	if err != nil {
		return nil, err
	}
	// el fk nunca es editable, aunque el subset lo nombre
	fields := schema.Fields[:0]
	for _, f := range schema.Fields {
		if f.Name != fk {
			fields = append(fields, f)
		}
	}
	schema.Fields = fields

	return &InlineFactory{schema: schema, opts: setOpts, fk: fkField}, nil
}

// MustInlineOf es InlineOf que entra en pánico ante error. Pensado para
// fábricas de paquete declaradas en tiempo de inicialización.
func MustInlineOf(child any, fk string, schemaOpts []SchemaOption, setOpts SetOptions) *InlineFactory {
	f, err := InlineOf(child, fk, schemaOpts, setOpts)
	if err != nil {
		panic(err)
	}
	return f
}

// Schema expone el schema del formulario dependiente (sin el fk).
func (f *InlineFactory) Schema() Schema { return f.schema }

// InlineFormSet es un formset cuyos registros quedan asociados a un padre.
type InlineFormSet struct {
	*FormSet
	fk       Field
	parentID string
}

// ForParent instancia el formset para el padre identificado por parentID,
// con los registros dependientes existentes como formularios iniciales.
func (f *InlineFactory) ForParent(parentID string, existing ...any) *InlineFormSet {
	fs := NewSet(f.schema, f.opts).WithInitial(existing...)
	ifs := &InlineFormSet{FormSet: fs, fk: f.fk, parentID: parentID}
	fs.beforeSave = ifs.assignParent
	return ifs
}

// Bind liga el formset a los datos enviados. Devuelve el inline para
// encadenar.
func (ifs *InlineFormSet) Bind(data url.Values, prefix string) *InlineFormSet {
	ifs.FormSet.Bind(data, prefix)
	return ifs
}

// Save asocia cada registro nuevo o editado al padre antes de persistirlo.
// Falla con ErrNoParent si no hay instancia padre.
func (ifs *InlineFormSet) Save(ctx context.Context, p Persister) (SaveResult, error) {
	if ifs.parentID == "" {
		return SaveResult{}, ErrNoParent
	}
	return ifs.FormSet.Save(ctx, p)
}

// assignParent fija la referencia al padre sobre la instancia construida,
// pisando cualquier valor que hubiera traído el envío.
func (ifs *InlineFormSet) assignParent(instance any) error {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("forms: inline instance must be a struct pointer, got %T", instance)
	}
	fv := rv.Elem().FieldByIndex(ifs.fk.index)
	fv.Set(reflect.ValueOf(ifs.parentID).Convert(fv.Type()))
	return nil
}
