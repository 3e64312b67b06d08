package pets

import "time"

// Race clasifica a la mascota. Es un choice fijo en el formulario.
type Race string

const (
	RaceDog   Race = "dog"
	RaceCat   Race = "cat"
	RaceBird  Race = "bird"
	RaceOther Race = "other"
)

// Pet es la entidad dependiente: cada mascota referencia exactamente una
// persona. person_id no es editable por formulario (hidden, se asigna al
// guardar desde el padre del inline formset).
type Pet struct {
	ID       string `form:"-"`
	PersonID string `form:"person_id,required,hidden"`

	Name        string    `form:"name,required,maxlen=80"`
	Race        Race      `form:"race,required,choices=dog|cat|bird|other"`
	CreatedDate time.Time `form:"created_date,required"`

	CreatedAt time.Time `form:"-"`
	UpdatedAt time.Time `form:"-"`
}
