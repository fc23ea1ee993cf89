// Package authorization authenticates bearer tokens and decides which
// buildings a caller may act on.
package authorization

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleViewer     = "viewer"
)

// BuildingIDs accepts either a single id or a list. Older tokens carry a
// plain string.
type BuildingIDs []string

func (b *BuildingIDs) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*b = nil
		for _, id := range strings.Split(one, ",") {
			if id = strings.TrimSpace(id); id != "" {
				*b = append(*b, id)
			}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*b = many
	return nil
}

func (b BuildingIDs) Contains(id string) bool {
	for _, v := range b {
		if v == id {
			return true
		}
	}
	return false
}

type Claims struct {
	Role        string      `json:"role"`
	BuildingIDs BuildingIDs `json:"building_ids,omitempty"`
	jwt.RegisteredClaims
}

// ParseJWT validates an HS256 token and its claims.
func ParseJWT(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("auth: missing subject")
	}
	claims.Role = strings.ToLower(strings.TrimSpace(claims.Role))
	if claims.Role == "" {
		return nil, errors.New("auth: missing role")
	}
	return claims, nil
}
