package forms

import (
	"fmt"
	"net/mail"
	"reflect"
	"strconv"
	"time"
)

const (
	dateLayout = "2006-01-02"
)

// coerce convierte el valor crudo del envío al tipo del campo. Devuelve el
// mensaje de error legible cuando el valor no se puede interpretar.
func coerce(f Field, raw string) (any, string) {
	switch f.Type {
	case TypeText, TypeTextarea:
		if f.MaxLen > 0 && len([]rune(raw)) > f.MaxLen {
			return nil, fmt.Sprintf("ensure this value has at most %d characters", f.MaxLen)
		}
		if f.Format == "email" {
			if _, err := mail.ParseAddress(raw); err != nil {
				return nil, msgInvalidEmail
			}
		}
		return raw, ""

	case TypeChoice:
		for _, c := range f.Choices {
			if raw == c {
				return raw, ""
			}
		}
		return nil, msgInvalidChoice

	case TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, msgInvalidInt
		}
		return n, ""

	case TypeNumber:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, msgInvalidNumber
		}
		return x, ""

	case TypeBoolean:
		switch raw {
		case "true", "on", "1", "yes":
			return true, ""
		case "false", "off", "0", "no":
			return false, ""
		}
		return nil, msgInvalidBool

	case TypeDate:
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, msgInvalidDate
		}
		return t, ""

	case TypeDateTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, msgInvalidTime
		}
		return t, ""
	}
	return nil, fmt.Sprintf("unsupported field type %q", f.Type)
}

// assign escribe el valor limpio en el campo del struct destino.
// value == nil deja el campo en su valor cero (opcional vacío).
func assign(dst reflect.Value, f Field, value any) error {
	fv := dst.FieldByIndex(f.index)
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	target := fv
	if f.optional {
		p := reflect.New(fv.Type().Elem())
		fv.Set(p)
		target = p.Elem()
	}

	v := reflect.ValueOf(value)
	if !v.Type().ConvertibleTo(target.Type()) {
		return fmt.Errorf("forms: cannot assign %T to field %s", value, f.Name)
	}
	target.Set(v.Convert(target.Type()))
	return nil
}

// render formatea el valor actual de un campo como string de formulario,
// el inverso de coerce. Se usa para valores iniciales y HasChanged.
func render(f Field, instance any) string {
	if instance == nil {
		return ""
	}
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	fv := rv.FieldByIndex(f.index)
	if f.optional {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}

	switch f.Type {
	case TypeDate:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	case TypeDateTime:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	case TypeInteger:
		if fv.CanInt() {
			return strconv.FormatInt(fv.Int(), 10)
		}
		return strconv.FormatUint(fv.Uint(), 10)
	case TypeNumber:
		return strconv.FormatFloat(fv.Float(), 'f', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(fv.Bool())
	default:
		return fv.String()
	}
}
