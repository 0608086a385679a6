package models

import "github.com/golang-jwt/jwt/v5"

// SystemActorName is recorded as the author of automated changes.
const SystemActorName = "System"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor is the authenticated principal performing a request. The zero ID denotes the system.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// SystemActor returns the actor used for automated changes.
func SystemActor() Actor {
	return Actor{Name: SystemActorName}
}

// IsSystem reports whether the actor is the system.
func (a Actor) IsSystem() bool {
	return a.ID == ""
}

// IDPtr returns nil for the system actor, otherwise a pointer to the id.
func (a Actor) IDPtr() *string {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}

// ActorFromClaims builds an actor from validated token claims.
func ActorFromClaims(claims *JWTClaims) Actor {
	name := claims.FullName
	if name == "" {
		name = claims.Email
	}
	return Actor{ID: claims.UserID, Name: name, Email: claims.Email, Role: claims.Role}
}
