package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"person-registry/internal/platform/logger"
	"person-registry/internal/router"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(router.NewRouter(router.Options{
		Log: logger.New(logger.Options{Level: logger.Error}),
	}))
	t.Cleanup(srv.Close)
	return srv
}

// postForm envía un POST application/x-www-form-urlencoded y decodifica la
// respuesta JSON en out (si out no es nil).
func postForm(t *testing.T, srv *httptest.Server, path string, data url.Values, out any) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	decodeBody(t, resp, out)
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	decodeBody(t, resp, out)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
	}
}

type personBody struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type errorsBody struct {
	Errors     map[string][]string   `json:"errors"`
	FormErrors []map[string][]string `json:"form_errors"`
}

func validPersonData(email string) url.Values {
	return url.Values{
		"first_name": {"Laura"},
		"last_name":  {"Gómez"},
		"email":      {email},
		"birth_date": {"1990-04-12"},
	}
}

// createPerson da de alta una persona por la API y devuelve su id.
func createPerson(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	var created personBody
	resp := postForm(t, srv, "/persons", validPersonData(email), &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create person status = %d", resp.StatusCode)
	}
	if created.ID == "" {
		t.Fatal("create person returned empty id")
	}
	return created.ID
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp := getJSON(t, srv, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestPersonFormLifecycle(t *testing.T) {
	srv := newServer(t)

	var form struct {
		Model  string `json:"model"`
		Fields []struct {
			Name     string `json:"name"`
			Key      string `json:"key"`
			Required bool   `json:"required"`
		} `json:"fields"`
	}
	resp := getJSON(t, srv, "/persons/form", &form)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("form status = %d", resp.StatusCode)
	}
	if form.Model != "person" || len(form.Fields) == 0 {
		t.Fatalf("form body: %+v", form)
	}
	if form.Fields[0].Name != "first_name" || !form.Fields[0].Required {
		t.Errorf("first field: %+v", form.Fields[0])
	}

	id := createPerson(t, srv, "laura@example.com")

	var fetched personBody
	resp = getJSON(t, srv, "/persons/"+id, &fetched)
	if resp.StatusCode != http.StatusOK || fetched.Email != "laura@example.com" {
		t.Fatalf("get person: status=%d body=%+v", resp.StatusCode, fetched)
	}
}

func TestCreatePerson_ValidationErrors(t *testing.T) {
	srv := newServer(t)

	data := validPersonData("laura@example.com")
	data.Del("email")

	var body errorsBody
	resp := postForm(t, srv, "/persons", data, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if msgs := body.Errors["email"]; len(msgs) != 1 || msgs[0] != "this field is required" {
		t.Fatalf("errors = %v", body.Errors)
	}
}

func TestCreatePerson_DuplicateEmail(t *testing.T) {
	srv := newServer(t)
	createPerson(t, srv, "laura@example.com")

	var body errorsBody
	resp := postForm(t, srv, "/persons", validPersonData("laura@example.com"), &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body.Errors["email"]) != 1 {
		t.Fatalf("errors = %v", body.Errors)
	}
}

func TestUpdatePerson(t *testing.T) {
	srv := newServer(t)
	id := createPerson(t, srv, "laura@example.com")

	data := validPersonData("laura@example.com")
	data.Set("first_name", "Laurita")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/persons/"+id, strings.NewReader(data.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	var updated personBody
	decodeBody(t, resp, &updated)
	if resp.StatusCode != http.StatusOK || updated.FirstName != "Laurita" {
		t.Fatalf("update: status=%d body=%+v", resp.StatusCode, updated)
	}
}

func TestBatchFormSet(t *testing.T) {
	srv := newServer(t)

	t.Run("render includes management data", func(t *testing.T) {
		var set struct {
			TotalForms int               `json:"total_forms"`
			Management map[string]string `json:"management"`
		}
		resp := getJSON(t, srv, "/persons/batch/form", &set)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if set.TotalForms != 1 || set.Management["form-total-forms"] != "1" {
			t.Fatalf("rendered set: %+v", set)
		}
	})

	t.Run("blank submission is a no-op", func(t *testing.T) {
		data := url.Values{
			"form-total-forms":   {"1"},
			"form-initial-forms": {"0"},
		}
		var saved []personBody
		resp := postForm(t, srv, "/persons/batch", data, &saved)
		if resp.StatusCode != http.StatusOK || len(saved) != 0 {
			t.Fatalf("status=%d saved=%v", resp.StatusCode, saved)
		}
	})

	t.Run("missing management data", func(t *testing.T) {
		var body errorsBody
		resp := postForm(t, srv, "/persons/batch", url.Values{"form-0-first_name": {"x"}}, &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.Errors["__all__"]) != 1 {
			t.Fatalf("errors = %v", body.Errors)
		}
	})

	t.Run("duplicate email inside the batch persists nothing", func(t *testing.T) {
		data := url.Values{
			"form-total-forms":   {"2"},
			"form-initial-forms": {"0"},
			"form-0-first_name":  {"Ana"},
			"form-0-last_name":   {"Pérez"},
			"form-0-email":       {"dup@example.com"},
			"form-1-first_name":  {"Beto"},
			"form-1-last_name":   {"Suárez"},
			"form-1-email":       {"dup@example.com"},
		}
		var body errorsBody
		resp := postForm(t, srv, "/persons/batch", data, &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		// el error queda sobre el sub-formulario que repite el email
		if len(body.FormErrors) != 2 || len(body.FormErrors[1]["email"]) != 1 {
			t.Fatalf("form_errors = %v", body.FormErrors)
		}
		if len(body.FormErrors[0]["email"]) != 0 {
			t.Errorf("form 0 must not carry errors: %v", body.FormErrors[0])
		}

		var listed []personBody
		getJSON(t, srv, "/persons", &listed)
		for _, p := range listed {
			if p.Email == "dup@example.com" {
				t.Fatalf("rejected batch persisted %+v", p)
			}
		}
	})

	t.Run("email colliding with an existing person persists nothing", func(t *testing.T) {
		existingID := createPerson(t, srv, "taken@example.com")

		data := url.Values{
			"form-total-forms":   {"2"},
			"form-initial-forms": {"0"},
			"form-0-first_name":  {"Cata"},
			"form-0-last_name":   {"Ruiz"},
			"form-0-email":       {"nueva@example.com"},
			"form-1-first_name":  {"Dani"},
			"form-1-last_name":   {"Soto"},
			"form-1-email":       {"taken@example.com"},
		}
		var body errorsBody
		resp := postForm(t, srv, "/persons/batch", data, &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.FormErrors) != 2 || len(body.FormErrors[1]["email"]) != 1 {
			t.Fatalf("form_errors = %v", body.FormErrors)
		}

		// el primer sub-formulario, válido, tampoco se persistió
		var listed []personBody
		getJSON(t, srv, "/persons", &listed)
		for _, p := range listed {
			if p.Email == "nueva@example.com" {
				t.Fatalf("rejected batch persisted %+v", p)
			}
			if p.Email == "taken@example.com" && p.ID != existingID {
				t.Fatalf("rejected batch persisted %+v", p)
			}
		}
	})

	t.Run("creates every filled form", func(t *testing.T) {
		data := url.Values{
			"form-total-forms":   {"3"},
			"form-initial-forms": {"0"},
			"form-0-first_name":  {"Ana"},
			"form-0-last_name":   {"Pérez"},
			"form-0-email":       {"ana@example.com"},
			"form-1-first_name":  {"Beto"},
			"form-1-last_name":   {"Suárez"},
			"form-1-email":       {"beto@example.com"},
			// el tercero queda sin tocar
			"form-2-first_name": {""},
		}
		var saved []personBody
		resp := postForm(t, srv, "/persons/batch", data, &saved)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(saved) != 2 || saved[0].Email != "ana@example.com" || saved[1].Email != "beto@example.com" {
			t.Fatalf("saved = %+v", saved)
		}
	})
}

func petFormData(name, race, created string) url.Values {
	return url.Values{
		"pet-total-forms":    {"1"},
		"pet-initial-forms":  {"0"},
		"pet-0-name":         {name},
		"pet-0-race":         {race},
		"pet-0-created_date": {created},
	}
}

type petBody struct {
	ID       string `json:"id"`
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Race     string `json:"race"`
}

type inlineSaveBody struct {
	Saved   []petBody `json:"saved"`
	Deleted int       `json:"deleted"`
}

func TestInlinePets(t *testing.T) {
	srv := newServer(t)
	personID := createPerson(t, srv, "laura@example.com")
	petsPath := "/persons/" + personID + "/pets"

	t.Run("formset renders without parent reference field", func(t *testing.T) {
		var set struct {
			Prefix     string            `json:"prefix"`
			Management map[string]string `json:"management"`
			Forms      [][]struct {
				Name string `json:"name"`
			} `json:"forms"`
		}
		resp := getJSON(t, srv, petsPath+"/formset", &set)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if set.Prefix != "pet" || set.Management["pet-total-forms"] != "1" {
			t.Fatalf("rendered set: %+v", set)
		}
		for _, f := range set.Forms[0] {
			if f.Name == "person_id" {
				t.Fatal("person_id must not be an editable field")
			}
		}
	})

	t.Run("submission assigns the parent", func(t *testing.T) {
		data := petFormData("Rex", "dog", "2020-01-02")
		// un person_id enviado se ignora
		data.Set("pet-0-person_id", "otro")

		var body inlineSaveBody
		resp := postForm(t, srv, petsPath, data, &body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.Saved) != 1 || body.Saved[0].PersonID != personID {
			t.Fatalf("saved = %+v", body.Saved)
		}
		if body.Saved[0].Name != "Rex" || body.Saved[0].Race != "dog" {
			t.Errorf("pet = %+v", body.Saved[0])
		}
	})

	t.Run("list returns the saved pets", func(t *testing.T) {
		var pets []petBody
		resp := getJSON(t, srv, petsPath, &pets)
		if resp.StatusCode != http.StatusOK || len(pets) != 1 {
			t.Fatalf("status=%d pets=%+v", resp.StatusCode, pets)
		}
	})

	t.Run("invalid race is a field error", func(t *testing.T) {
		var body errorsBody
		resp := postForm(t, srv, petsPath, petFormData("Mishi", "hamster", "2021-03-04"), &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.FormErrors) != 1 || len(body.FormErrors[0]["race"]) != 1 {
			t.Fatalf("form_errors = %v", body.FormErrors)
		}
	})

	t.Run("missing management data", func(t *testing.T) {
		var body errorsBody
		resp := postForm(t, srv, petsPath, url.Values{"pet-0-name": {"Rex"}}, &body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if len(body.Errors["__all__"]) != 1 {
			t.Fatalf("errors = %v", body.Errors)
		}
	})

	t.Run("unknown person is 404", func(t *testing.T) {
		resp := postForm(t, srv, "/persons/nope/pets", petFormData("Rex", "dog", "2020-01-02"), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("delete flag removes the pet", func(t *testing.T) {
		data := url.Values{
			"pet-total-forms":    {"1"},
			"pet-initial-forms":  {"1"},
			"pet-0-name":         {"Rex"},
			"pet-0-race":         {"dog"},
			"pet-0-created_date": {"2020-01-02"},
			"pet-0-delete":       {"on"},
		}
		var body inlineSaveBody
		resp := postForm(t, srv, petsPath, data, &body)
		if resp.StatusCode != http.StatusOK || body.Deleted != 1 {
			t.Fatalf("status=%d body=%+v", resp.StatusCode, body)
		}

		var pets []petBody
		getJSON(t, srv, petsPath, &pets)
		if len(pets) != 0 {
			t.Fatalf("pets after delete = %+v", pets)
		}
	})
}

func TestDeletePersonCascades(t *testing.T) {
	srv := newServer(t)
	personID := createPerson(t, srv, "laura@example.com")
	petsPath := "/persons/" + personID + "/pets"

	var body inlineSaveBody
	resp := postForm(t, srv, petsPath, petFormData("Rex", "dog", "2020-01-02"), &body)
	if resp.StatusCode != http.StatusOK || len(body.Saved) != 1 {
		t.Fatalf("seed pet: status=%d body=%+v", resp.StatusCode, body)
	}

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/persons/"+personID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	decodeBody(t, delResp, nil)
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", delResp.StatusCode)
	}

	getResp := getJSON(t, srv, "/persons/"+personID, nil)
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("person after delete = %d", getResp.StatusCode)
	}
	petsResp := getJSON(t, srv, petsPath, nil)
	if petsResp.StatusCode != http.StatusNotFound {
		t.Fatalf("pets after delete = %d", petsResp.StatusCode)
	}
}
