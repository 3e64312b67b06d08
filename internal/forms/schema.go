// Package forms deriva formularios a partir de los structs del dominio:
// un Schema describe los campos editables (tipo, required, límites,
// choices) y Form/FormSet/InlineFormSet validan y persisten envíos
// codificados como application/x-www-form-urlencoded.
package forms

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// FieldType clasifica el input que espera un campo.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeInteger  FieldType = "integer"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeChoice   FieldType = "choice"
)

// Field describe un campo editable derivado de un atributo del struct.
type Field struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	MaxLen   int
	Choices  []string
	Help     string
	Hidden   bool
	Unique   bool
	Format   string // "email" valida formato además del tipo

	index    []int        // índice del campo en el struct
	goType   reflect.Type // tipo destino para la asignación
	optional bool         // campo puntero: vacío => nil
}

// Schema es la descripción de formulario de un tipo de modelo.
type Schema struct {
	Model  string
	Fields []Field

	typ reflect.Type
}

// SchemaOption ajusta la derivación del Schema.
type SchemaOption func(*schemaConfig) error

type schemaConfig struct {
	fields []string // subset declarado, en orden
}

// WithFields restringe el formulario al subset declarado de campos.
// Falla si algún nombre no existe en el modelo.
func WithFields(names ...string) SchemaOption {
	return func(c *schemaConfig) error {
		if len(names) == 0 {
			return fmt.Errorf("forms: WithFields requires at least one field name")
		}
		c.fields = names
		return nil
	}
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// sanitizeHelp limpia el help text declarado en el tag: solo queda texto plano.
func sanitizeHelp(raw string) string {
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(helpPolicy.Sanitize(raw))
}

var timeType = reflect.TypeOf(time.Time{})

// SchemaOf deriva un Schema por reflexión sobre model (struct o puntero a
// struct). El tag `form` controla nombre y reglas:
//
//	FirstName string     `form:"first_name,required,maxlen=80"`
//	Race      Race       `form:"race,required,choices=dog|cat|bird|other"`
//	Notes     string     `form:"notes,widget=textarea,help=Texto libre"`
//	ID        string     `form:"-"` // excluido
//
// Campos sin tag usan el nombre en snake_case y las reglas por defecto
// del tipo. Campos puntero son opcionales (vacío => nil).
func SchemaOf(model any, opts ...SchemaOption) (Schema, error) {
	typ := reflect.TypeOf(model)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("forms: SchemaOf requires a struct, got %T", model)
	}

	cfg := schemaConfig{}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Schema{}, err
		}
	}

	all := make([]Field, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		f, skip, err := fieldFromStruct(sf)
		if err != nil {
			return Schema{}, fmt.Errorf("forms: %s.%s: %w", typ.Name(), sf.Name, err)
		}
		if skip {
			continue
		}
		all = append(all, f)
	}

	fields := all
	if len(cfg.fields) > 0 {
		byName := make(map[string]Field, len(all))
		for _, f := range all {
			byName[f.Name] = f
		}
		fields = make([]Field, 0, len(cfg.fields))
		for _, name := range cfg.fields {
			f, ok := byName[name]
			if !ok {
				return Schema{}, fmt.Errorf("forms: unknown field %q for model %s", name, typ.Name())
			}
			fields = append(fields, f)
		}
	}

	return Schema{
		Model:  snakeCase(typ.Name()),
		Fields: fields,
		typ:    typ,
	}, nil
}

// MustSchemaOf es SchemaOf que entra en pánico ante error. Pensado para
// schemas de paquete declarados en tiempo de inicialización.
func MustSchemaOf(model any, opts ...SchemaOption) Schema {
	s, err := SchemaOf(model, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func fieldFromStruct(sf reflect.StructField) (Field, bool, error) {
	tag := sf.Tag.Get("form")
	if tag == "-" {
		return Field{}, true, nil
	}

	f := Field{
		Name:   snakeCase(sf.Name),
		index:  sf.Index,
		goType: sf.Type,
	}

	elem := sf.Type
	if elem.Kind() == reflect.Ptr {
		f.optional = true
		elem = elem.Elem()
	}

	switch {
	case elem == timeType:
		f.Type = TypeDate
	case elem.Kind() == reflect.String:
		f.Type = TypeText
	case elem.Kind() >= reflect.Int && elem.Kind() <= reflect.Uint64:
		f.Type = TypeInteger
	case elem.Kind() == reflect.Float32 || elem.Kind() == reflect.Float64:
		f.Type = TypeNumber
	case elem.Kind() == reflect.Bool:
		f.Type = TypeBoolean
	default:
		return Field{}, false, fmt.Errorf("unsupported field type %s", sf.Type)
	}

	if tag != "" {
		parts := strings.Split(tag, ",")
		if name := strings.TrimSpace(parts[0]); name != "" {
			f.Name = name
		}
		for _, part := range parts[1:] {
			key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
			switch key {
			case "":
				// tolera comas sobrantes
			case "required":
				f.Required = true
			case "hidden":
				f.Hidden = true
			case "unique":
				f.Unique = true
			case "email":
				f.Format = "email"
			case "datetime":
				f.Type = TypeDateTime
			case "maxlen":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return Field{}, false, fmt.Errorf("invalid maxlen %q", value)
				}
				f.MaxLen = n
			case "choices":
				f.Type = TypeChoice
				for _, c := range strings.Split(value, "|") {
					if c = strings.TrimSpace(c); c != "" {
						f.Choices = append(f.Choices, c)
					}
				}
				if len(f.Choices) == 0 {
					return Field{}, false, fmt.Errorf("choices tag is empty")
				}
			case "widget":
				if value == "textarea" {
					f.Type = TypeTextarea
				}
			case "help":
				f.Help = sanitizeHelp(value)
			default:
				return Field{}, false, fmt.Errorf("unknown form tag option %q", key)
			}
		}
	}

	if f.Label == "" {
		f.Label = labelFromName(f.Name)
	}
	return f, false, nil
}

// field busca un campo del schema por nombre.
func (s Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// newInstance crea un puntero a un valor cero del tipo del modelo.
func (s Schema) newInstance() any {
	return reflect.New(s.typ).Interface()
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// corta antes de una mayúscula que arranca palabra; las
			// siglas (ID, URL) quedan juntas
			prevLower := i > 0 && isLowerRune(runes[i-1])
			nextLower := i+1 < len(runes) && isLowerRune(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isLowerRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func labelFromName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
