package domain

import (
	"errors"
	"strings"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("not authorized")
	ErrPostNotFound       = errors.New("post not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrValidation         = errors.New("validation failed")
	ErrInternal           = errors.New("internal error")
)

// FieldError décrit une violation sur un champ d'entrée.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError regroupe toutes les violations d'une même requête.
// errors.Is(err, ErrValidation) est vrai pour toute ValidationError.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add ajoute une violation.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil retourne nil si aucune violation n'a été collectée.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Internal marque une erreur technique (store, broker) comme ErrInternal
// tout en gardant la cause pour les logs.
func Internal(op string, err error) error {
	return &internalError{op: op, err: err}
}

type internalError struct {
	op  string
	err error
}

func (e *internalError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *internalError) Unwrap() []error {
	return []error{ErrInternal, e.err}
}
