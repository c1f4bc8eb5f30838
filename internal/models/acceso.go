package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Access kinds returned by a scan.
const (
	AccessEntrada = "entrada"
	AccessSalida  = "salida"
)

// Acceso is one entry/exit pair for a card on a calendar day. It is open
// while HoraSalida is empty.
type Acceso struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PersonaID      primitive.ObjectID `bson:"personaId" json:"personaId"`
	Nombre         string             `bson:"nombre" json:"nombre"`
	RolUniversidad string             `bson:"rolUniversidad" json:"rolUniversidad"`
	Carnet         string             `bson:"carnet" json:"carnet"`
	NumeroTarjeta  string             `bson:"numeroTarjeta" json:"numeroTarjeta"`
	Fecha          string             `bson:"fecha" json:"fecha"`             // YYYY-MM-DD
	HoraEntrada    string             `bson:"horaEntrada" json:"horaEntrada"` // HH:mm:ss
	HoraSalida     string             `bson:"horaSalida,omitempty" json:"horaSalida,omitempty"`

	// Abierto backs the unique (personaId, fecha) index over open sessions.
	Abierto bool `bson:"abierto" json:"-"`
}

// Open reports whether the session has no exit time yet.
func (a *Acceso) Open() bool {
	return a.HoraSalida == ""
}

// Lookup returns the value of a queryable field and whether it is set.
func (a *Acceso) Lookup(field string) (string, bool) {
	var v string
	switch field {
	case "nombre":
		v = a.Nombre
	case "rolUniversidad":
		v = a.RolUniversidad
	case "carnet":
		v = a.Carnet
	case "numeroTarjeta":
		v = a.NumeroTarjeta
	case "fecha":
		v = a.Fecha
	case "horaEntrada":
		v = a.HoraEntrada
	case "horaSalida":
		v = a.HoraSalida
	}
	return v, v != ""
}
