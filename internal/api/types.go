package api

import "time"

// Role ids as issued by the backend.
const (
	RoleAdmin   = 1
	RoleStudent = 2
	RoleTeacher = 3
)

// User mirrors a backend user. The password is never read back.
type User struct {
	ID       int    `json:"id"`
	Names    string `json:"nombres"`
	Email    string `json:"correo"`
	CareerID int    `json:"id_carrera"`
	RoleID   int    `json:"id_rol"`
}

// UserInput is the create/update payload. A nil Password leaves the stored
// password untouched on update.
type UserInput struct {
	Names    string  `json:"nombres"`
	Email    string  `json:"correo"`
	Password *string `json:"contrasena,omitempty"`
	CareerID int     `json:"id_carrera"`
	RoleID   int     `json:"id_rol"`
}

type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

type Report struct {
	ID         int       `json:"id"`
	ResourceID int       `json:"id_recurso"`
	UserID     int       `json:"id_usuario"`
	Reason     string    `json:"motivo"`
	CreatedAt  time.Time `json:"fecha"`
}

type Resource struct {
	ID         int    `json:"id"`
	Title      string `json:"titulo"`
	Theme      string `json:"tema"`
	CategoryID int    `json:"id_categoria"`
	URL        string `json:"url"`
	SubjectID  int    `json:"id_materia"`
}

type Comment struct {
	ID         int       `json:"id"`
	ResourceID int       `json:"id_recurso"`
	UserID     int       `json:"id_usuario"`
	Text       string    `json:"texto"`
	CreatedAt  time.Time `json:"fecha"`
}

// ReactionType is either "like" or "dislike".
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

type Reaction struct {
	UserID     int          `json:"id_usuario"`
	ResourceID int          `json:"id_recurso"`
	Type       ReactionType `json:"tipo"`
}

type Career struct {
	ID   int    `json:"id"`
	Name string `json:"nombre"`
	// Type selects the semester range: 1 for semesters 1-6, 2 for 7-10.
	Type int `json:"tipo"`
}

type Subject struct {
	ID       int    `json:"id"`
	Name     string `json:"nombre"`
	CareerID int    `json:"id_carrera"`
	Semester int    `json:"semestre"`
}

// LogEntry is one row of the backend's activity log.
type LogEntry struct {
	ID        int       `json:"id"`
	UserID    int       `json:"id_usuario"`
	Action    string    `json:"accion"`
	Detail    string    `json:"detalle"`
	CreatedAt time.Time `json:"fecha"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

// LoginResult carries the JWT issued by the backend.
type LoginResult struct {
	Token string `json:"token"`
}
