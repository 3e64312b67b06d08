package persons

import "time"

// Person es la entidad padre del registro: una persona que puede tener
// cero o más mascotas asociadas. El tag `form` declara cómo se deriva su
// formulario de edición.
type Person struct {
	ID string `form:"-"`

	FirstName string `form:"first_name,required,maxlen=80"`
	LastName  string `form:"last_name,required,maxlen=80"`
	Email     string `form:"email,required,email,maxlen=254,unique"`
	Phone     string `form:"phone,maxlen=32"`

	BirthDate *time.Time `form:"birth_date"`
	Notes     string     `form:"notes,widget=textarea"`

	CreatedAt time.Time `form:"-"`
	UpdatedAt time.Time `form:"-"`
}
