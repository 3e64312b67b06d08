package forms

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

type note struct {
	ID   string `form:"-"`
	Body string `form:"body,required"`
}

var noteSchema = MustSchemaOf(note{})

type fakeStore struct {
	saved   []*note
	deleted []*note
}

func (s *fakeStore) persister() Persister {
	return Persister{
		Save: func(ctx context.Context, instance any) error {
			s.saved = append(s.saved, instance.(*note))
			return nil
		},
		Delete: func(ctx context.Context, instance any) error {
			s.deleted = append(s.deleted, instance.(*note))
			return nil
		},
	}
}

func TestFormSet_UnboundRendersExtraBlankForm(t *testing.T) {
	fs := NewSet(noteSchema, SetOptions{})
	if got := fs.TotalForms(); got != 1 {
		t.Fatalf("TotalForms = %d, want 1 (default extra)", got)
	}

	rendered := fs.Render()
	if rendered.TotalForms != 1 || rendered.InitialForms != 0 {
		t.Fatalf("rendered management: %+v", rendered)
	}
	if rendered.Management["form-total-forms"] != "1" {
		t.Errorf("management keys: %v", rendered.Management)
	}
	if len(rendered.Forms) != 1 || rendered.Forms[0][0].Key != "form-0-body" {
		t.Errorf("rendered forms: %+v", rendered.Forms)
	}
}

func TestFormSet_MissingManagementData(t *testing.T) {
	fs := NewSet(noteSchema, SetOptions{}).Bind(url.Values{"form-0-body": {"hola"}}, "form")
	if fs.IsValid() {
		t.Fatal("expected invalid formset without management data")
	}
	msgs := fs.Errors[NonFieldKey]
	if len(msgs) != 1 || msgs[0] != msgManagement {
		t.Fatalf("errors = %v", fs.Errors)
	}
}

func TestFormSet_RenderWithBadManagementData(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"muchos"},
		"form-initial-forms": {"0"},
	}
	fs := NewSet(noteSchema, SetOptions{}).Bind(data, "form")

	rendered := fs.Render()
	if rendered.TotalForms != 0 || len(rendered.Forms) != 0 {
		t.Fatalf("rendered set: %+v", rendered)
	}
	if rendered.Management["form-total-forms"] != "0" {
		t.Errorf("management keys: %v", rendered.Management)
	}
}

func TestFormSet_BlankSubmissionIsValidNoop(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"1"},
		"form-initial-forms": {"0"},
		"form-0-body":        {""},
	}
	fs := NewSet(noteSchema, SetOptions{}).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Saved) != 0 || len(res.Deleted) != 0 || len(store.saved) != 0 {
		t.Fatalf("blank submission must be a no-op, got %+v", res)
	}
}

func TestFormSet_SavesEveryChangedForm(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"3"},
		"form-initial-forms": {"0"},
		"form-0-body":        {"primera"},
		"form-1-body":        {"segunda"},
		"form-2-body":        {""}, // extra sin tocar
	}
	fs := NewSet(noteSchema, SetOptions{}).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Saved) != 2 {
		t.Fatalf("saved %d forms, want 2", len(res.Saved))
	}
	if store.saved[0].Body != "primera" || store.saved[1].Body != "segunda" {
		t.Errorf("saved order: %+v, %+v", store.saved[0], store.saved[1])
	}
}

func TestFormSet_WhitespaceOnlyFormIsSkipped(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"2"},
		"form-initial-forms": {"0"},
		"form-0-body":        {"ok"},
		"form-1-body":        {"   "}, // se recorta a vacío: sin cambios
	}
	fs := NewSet(noteSchema, SetOptions{}).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("whitespace-only form must be skipped, errors: %v", fs.Errors)
	}
}

func TestFormSet_FormErrorsByIndex(t *testing.T) {
	s := MustSchemaOf(struct {
		Body string `form:"body,required,maxlen=5"`
	}{})

	data := url.Values{
		"form-total-forms":   {"2"},
		"form-initial-forms": {"0"},
		"form-0-body":        {"ok"},
		"form-1-body":        {"demasiado largo"},
	}
	fs := NewSet(s, SetOptions{}).Bind(data, "form")
	if fs.IsValid() {
		t.Fatal("expected invalid formset")
	}

	perForm := fs.FormErrors()
	if len(perForm) != 2 {
		t.Fatalf("FormErrors len = %d", len(perForm))
	}
	if perForm[0].HasErrors() {
		t.Errorf("form 0 unexpected errors: %v", perForm[0])
	}
	if !perForm[1].HasErrors() {
		t.Error("form 1 must carry errors")
	}
}

func TestFormSet_MaxFormsExceeded(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"3"},
		"form-initial-forms": {"0"},
	}
	fs := NewSet(noteSchema, SetOptions{MaxForms: 2}).Bind(data, "form")
	if fs.IsValid() {
		t.Fatal("expected invalid formset above max forms")
	}
	if msgs := fs.Errors[NonFieldKey]; len(msgs) != 1 || !strings.Contains(msgs[0], "at most 2") {
		t.Fatalf("errors = %v", fs.Errors)
	}
}

func TestFormSet_MinFormsUnmet(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"1"},
		"form-initial-forms": {"0"},
		"form-0-body":        {""},
	}
	fs := NewSet(noteSchema, SetOptions{MinForms: 1}).Bind(data, "form")
	if fs.IsValid() {
		t.Fatal("expected invalid formset below min forms")
	}
}

func TestFormSet_InitialFormsUpdateInPlace(t *testing.T) {
	existing := &note{ID: "n-1", Body: "vieja"}

	data := url.Values{
		"form-total-forms":   {"2"},
		"form-initial-forms": {"1"},
		"form-0-body":        {"nueva"},
		"form-1-body":        {""},
	}
	fs := NewSet(noteSchema, SetOptions{}).WithInitial(existing).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Saved) != 1 || res.Saved[0] != any(existing) {
		t.Fatalf("expected the existing instance to be updated, got %+v", res.Saved)
	}
	if existing.Body != "nueva" {
		t.Errorf("body = %q", existing.Body)
	}
}

func TestFormSet_UnchangedInitialFormIsSkipped(t *testing.T) {
	existing := &note{ID: "n-1", Body: "igual"}

	data := url.Values{
		"form-total-forms":   {"1"},
		"form-initial-forms": {"1"},
		"form-0-body":        {"igual"},
	}
	fs := NewSet(noteSchema, SetOptions{}).WithInitial(existing).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Saved) != 0 {
		t.Fatalf("unchanged initial form must not be saved, got %+v", res.Saved)
	}
}

func TestFormSet_DeleteFlagRemovesExisting(t *testing.T) {
	existing := &note{ID: "n-1", Body: "borrame"}

	data := url.Values{
		"form-total-forms":   {"1"},
		"form-initial-forms": {"1"},
		"form-0-body":        {"borrame"},
		"form-0-delete":      {"on"},
	}
	fs := NewSet(noteSchema, SetOptions{CanDelete: true}).WithInitial(existing).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Deleted) != 1 || store.deleted[0] != existing {
		t.Fatalf("expected existing instance deleted, got %+v", res)
	}
	if len(res.Saved) != 0 {
		t.Errorf("deleted form must not be saved")
	}
}

func TestFormSet_DeleteFlagOnNewFormIsIgnored(t *testing.T) {
	data := url.Values{
		"form-total-forms":   {"1"},
		"form-initial-forms": {"0"},
		"form-0-body":        {"nunca nace"},
		"form-0-delete":      {"on"},
	}
	fs := NewSet(noteSchema, SetOptions{CanDelete: true}).Bind(data, "form")
	if !fs.IsValid() {
		t.Fatalf("expected valid formset, errors: %v", fs.Errors)
	}

	store := &fakeStore{}
	res, err := fs.Save(context.Background(), store.persister())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Saved) != 0 || len(res.Deleted) != 0 {
		t.Fatalf("expected full no-op, got %+v", res)
	}
}
