package domain

// AuthContext est dérivé à chaque requête depuis le bearer token, jamais persisté.
// Un token absent ou invalide donne un contexte anonyme, pas une erreur :
// chaque opération vérifie IsAuthenticated elle-même.
type AuthContext struct {
	UserID          string
	IsAuthenticated bool
}

// Anonymous retourne le contexte non authentifié.
func Anonymous() AuthContext {
	return AuthContext{}
}

// Authenticated retourne le contexte d'un user identifié.
func Authenticated(userID string) AuthContext {
	return AuthContext{UserID: userID, IsAuthenticated: userID != ""}
}

// Claims est le contenu minimal d'un token d'accès.
type Claims struct {
	UserID string
	Email  string
}
