package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleVisitante is the university role given to temporary visitors.
const RoleVisitante = "Visitante"

// Person is a registered individual ("huella"). Regular persons are keyed by
// Carnet, visitors by NumeroTarjeta.
type Person struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	Nombre                   string `bson:"nombre,omitempty" json:"nombre,omitempty"`
	Apellido                 string `bson:"apellido,omitempty" json:"apellido,omitempty"`
	FechaNacimiento          string `bson:"fechaNacimiento,omitempty" json:"fechaNacimiento,omitempty"`
	IDInstitucional          string `bson:"idInstitucional,omitempty" json:"idInstitucional,omitempty"`
	Cedula                   string `bson:"cedula,omitempty" json:"cedula,omitempty"`
	RolUniversidad           string `bson:"rolUniversidad,omitempty" json:"rolUniversidad,omitempty"`
	CorreoPersonal           string `bson:"correoPersonal,omitempty" json:"correoPersonal,omitempty"`
	TieneCorreoInstitucional string `bson:"tieneCorreoInstitucional,omitempty" json:"tieneCorreoInstitucional,omitempty"`
	CorreoInstitucional      string `bson:"correoInstitucional,omitempty" json:"correoInstitucional,omitempty"`
	Fecha                    string `bson:"fecha,omitempty" json:"fecha,omitempty"`
	Hora                     string `bson:"hora,omitempty" json:"hora,omitempty"`
	Carnet                   string `bson:"carnet,omitempty" json:"carnet,omitempty"`

	// Photo: either a Cloudinary URL or the raw bytes when no uploader is configured.
	Imagen         []byte `bson:"imagen,omitempty" json:"-"`
	ImagenMimeType string `bson:"imagenMimeType,omitempty" json:"imagenMimeType,omitempty"`
	ImagenURL      string `bson:"imagenUrl,omitempty" json:"imagenUrl,omitempty"`

	// Estudiante
	Carrera             string `bson:"carrera,omitempty" json:"carrera,omitempty"`
	Semestre            string `bson:"semestre,omitempty" json:"semestre,omitempty"`
	TipoMatricula       string `bson:"tipoMatricula,omitempty" json:"tipoMatricula,omitempty"`
	Programa            string `bson:"programa,omitempty" json:"programa,omitempty"`
	PerteneceSemillero  string `bson:"perteneceSemillero,omitempty" json:"perteneceSemillero,omitempty"`
	NombreSemillero     string `bson:"nombreSemillero,omitempty" json:"nombreSemillero,omitempty"`
	TieneProyectoActivo string `bson:"tieneProyectoActivo,omitempty" json:"tieneProyectoActivo,omitempty"`
	NombreProyecto      string `bson:"nombreProyecto,omitempty" json:"nombreProyecto,omitempty"`

	// Profesor
	Departamento       string `bson:"departamento,omitempty" json:"departamento,omitempty"`
	CategoriaAcademica string `bson:"categoriaAcademica,omitempty" json:"categoriaAcademica,omitempty"`
	HorarioAtencion    string `bson:"horarioAtencion,omitempty" json:"horarioAtencion,omitempty"`

	// Personal administrativo
	Dependencia     string `bson:"dependencia,omitempty" json:"dependencia,omitempty"`
	Cargo           string `bson:"cargo,omitempty" json:"cargo,omitempty"`
	TelefonoInterno string `bson:"telefonoInterno,omitempty" json:"telefonoInterno,omitempty"`
	TurnoLaboral    string `bson:"turnoLaboral,omitempty" json:"turnoLaboral,omitempty"`

	// Egresado
	AnioGraduacion string `bson:"anioGraduacion,omitempty" json:"anioGraduacion,omitempty"`
	ProgramaGrado  string `bson:"programaGrado,omitempty" json:"programaGrado,omitempty"`
	TituloObtenido string `bson:"tituloObtenido,omitempty" json:"tituloObtenido,omitempty"`
	CorreoEgresado string `bson:"correoEgresado,omitempty" json:"correoEgresado,omitempty"`

	// Personal de servicios
	Area           string `bson:"area,omitempty" json:"area,omitempty"`
	Turno          string `bson:"turno,omitempty" json:"turno,omitempty"`
	NumeroEmpleado string `bson:"numeroEmpleado,omitempty" json:"numeroEmpleado,omitempty"`

	// Becario / pasante
	ProgramaBeca        string `bson:"programaBeca,omitempty" json:"programaBeca,omitempty"`
	FechaInicioBeca     string `bson:"fechaInicioBeca,omitempty" json:"fechaInicioBeca,omitempty"`
	FechaFinBeca        string `bson:"fechaFinBeca,omitempty" json:"fechaFinBeca,omitempty"`
	DependenciaAsignada string `bson:"dependenciaAsignada,omitempty" json:"dependenciaAsignada,omitempty"`

	// Visitante
	RazonVisita     string     `bson:"razonVisita,omitempty" json:"razonVisita,omitempty"`
	NumeroTarjeta   string     `bson:"numeroTarjeta,omitempty" json:"numeroTarjeta,omitempty"`
	FechaExpiracion *time.Time `bson:"fechaExpiracion,omitempty" json:"fechaExpiracion,omitempty"`
}

// TextFields maps every editable text field name (as stored) to its value.
// It is the single allow-list used by updates, imports and directory filters.
func (p *Person) TextFields() map[string]*string {
	return map[string]*string{
		"nombre":                   &p.Nombre,
		"apellido":                 &p.Apellido,
		"fechaNacimiento":          &p.FechaNacimiento,
		"idInstitucional":          &p.IDInstitucional,
		"cedula":                   &p.Cedula,
		"rolUniversidad":           &p.RolUniversidad,
		"correoPersonal":           &p.CorreoPersonal,
		"tieneCorreoInstitucional": &p.TieneCorreoInstitucional,
		"correoInstitucional":      &p.CorreoInstitucional,
		"fecha":                    &p.Fecha,
		"hora":                     &p.Hora,
		"carnet":                   &p.Carnet,
		"carrera":                  &p.Carrera,
		"semestre":                 &p.Semestre,
		"tipoMatricula":            &p.TipoMatricula,
		"programa":                 &p.Programa,
		"perteneceSemillero":       &p.PerteneceSemillero,
		"nombreSemillero":          &p.NombreSemillero,
		"tieneProyectoActivo":      &p.TieneProyectoActivo,
		"nombreProyecto":           &p.NombreProyecto,
		"departamento":             &p.Departamento,
		"categoriaAcademica":       &p.CategoriaAcademica,
		"horarioAtencion":          &p.HorarioAtencion,
		"dependencia":              &p.Dependencia,
		"cargo":                    &p.Cargo,
		"telefonoInterno":          &p.TelefonoInterno,
		"turnoLaboral":             &p.TurnoLaboral,
		"anioGraduacion":           &p.AnioGraduacion,
		"programaGrado":            &p.ProgramaGrado,
		"tituloObtenido":           &p.TituloObtenido,
		"correoEgresado":           &p.CorreoEgresado,
		"area":                     &p.Area,
		"turno":                    &p.Turno,
		"numeroEmpleado":           &p.NumeroEmpleado,
		"programaBeca":             &p.ProgramaBeca,
		"fechaInicioBeca":          &p.FechaInicioBeca,
		"fechaFinBeca":             &p.FechaFinBeca,
		"dependenciaAsignada":      &p.DependenciaAsignada,
		"razonVisita":              &p.RazonVisita,
		"numeroTarjeta":            &p.NumeroTarjeta,
	}
}

// Lookup returns the value of a text field and whether it is set.
func (p *Person) Lookup(field string) (string, bool) {
	v, ok := p.TextFields()[field]
	if !ok || *v == "" {
		return "", false
	}
	return *v, true
}

// FullName joins name and surname the way access records denormalize it.
func (p *Person) FullName() string {
	return p.Nombre + " " + p.Apellido
}

// IsVisitor reports whether the record has a bounded validity period.
func (p *Person) IsVisitor() bool {
	return p.RolUniversidad == RoleVisitante
}

// Expired reports whether a visitor record is past its expiration at now.
func (p *Person) Expired(now time.Time) bool {
	return p.IsVisitor() && p.FechaExpiracion != nil && p.FechaExpiracion.Before(now)
}

// ContactEmail picks the address notifications go to, if any.
func (p *Person) ContactEmail() string {
	if p.CorreoInstitucional != "" {
		return p.CorreoInstitucional
	}
	return p.CorreoPersonal
}
