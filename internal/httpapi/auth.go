package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload: sub identifies the actor, role is one
// of admin, designer or member, rooms lists assigned room ids.
type Claims struct {
	Role  string   `json:"role"`
	Rooms []string `json:"rooms,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and attaches the actor to the
// request context.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator returns an authenticator for the shared secret. A
// non-empty issuer is required to match the iss claim.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

var validRoles = []domain.Role{domain.RoleAdmin, domain.RoleDesigner, domain.RoleMember}

// Issue signs a token for the actor valid for ttl.
func (a *Authenticator) Issue(actor domain.Actor, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role:  string(actor.Role),
		Rooms: actor.Rooms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies the token and maps its claims to an actor.
func (a *Authenticator) Parse(token string) (domain.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return domain.Actor{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Actor{}, errors.New("token has no subject")
	}
	role := domain.Role(strings.ToLower(claims.Role))
	if !slices.Contains(validRoles, role) {
		return domain.Actor{}, fmt.Errorf("token role %q not recognised", claims.Role)
	}
	return domain.Actor{ID: claims.Subject, Role: role, Rooms: claims.Rooms}, nil
}

// RequireActor rejects requests without a valid bearer token.
func (a *Authenticator) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		actor, err := a.Parse(token)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))
		c.Set(actorKey, actor.ID)
		c.Next()
	}
}

const actorKey = "ffe.actor_id"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
