// Package auth turns a bearer token into the identity a draft is opened
// with.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/templui/doin/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token carrying the identity and its saved profile.
func (s *TokenService) Issue(id *model.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    id.ID,
		"twitter_id": id.TwitterID,
		"handle":     id.Handle,
		"name":       id.DisplayName,
		"avatar":     id.AvatarURL,
		"followers":  id.FollowersCount,
		"prefecture": id.SavedPrefecture,
		"gender":     string(id.SavedGender),
		"exp":        now.Add(s.expiry).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *TokenService) Verify(tokenString string) (*model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	id := &model.Identity{
		TwitterID:       str(claims["twitter_id"]),
		Handle:          str(claims["handle"]),
		DisplayName:     str(claims["name"]),
		AvatarURL:       str(claims["avatar"]),
		SavedPrefecture: str(claims["prefecture"]),
		SavedGender:     model.Gender(str(claims["gender"])),
	}
	// numeric claims decode as float64
	if v, ok := claims["user_id"].(float64); ok {
		id.ID = int64(v)
	}
	if v, ok := claims["followers"].(float64); ok {
		id.FollowersCount = int(v)
	}

	if id.TwitterID == "" && id.ID == 0 {
		return nil, ErrInvalidToken
	}
	return id, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// TokenIdentity is an identity provider backed by a single bearer token.
// An empty token means nobody is signed in.
type TokenIdentity struct {
	svc   *TokenService
	token string
}

func NewTokenIdentity(svc *TokenService, token string) *TokenIdentity {
	return &TokenIdentity{svc: svc, token: token}
}

func (t *TokenIdentity) Identity(ctx context.Context) (*model.Identity, error) {
	if t.token == "" {
		return nil, nil
	}
	return t.svc.Verify(t.token)
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey).(*model.Identity)
	return id
}

// ContextIdentity reads the identity a request middleware stored.
type ContextIdentity struct{}

func (ContextIdentity) Identity(ctx context.Context) (*model.Identity, error) {
	return FromContext(ctx), nil
}
