package api

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Roma7-7-7/vocabulary-trainer/internal/config"
)

const (
	tokenKindAuth   tokenKind = "auth"
	tokenKindAccess tokenKind = "access"
)

var errInvalidToken = errors.New("invalid token")

type (
	tokenKind string

	JWTProcessor struct {
		issuer         string
		audience       []string
		authExpireIn   time.Duration
		accessExpireIn time.Duration
		now            func() time.Time

		secret []byte
	}

	Claims struct {
		Kind tokenKind `json:"kind"`
		jwt.RegisteredClaims
	}
)

func NewJWTProcessor(conf config.JWT, authExpireIn, accessExpireIn time.Duration) *JWTProcessor {
	return &JWTProcessor{
		issuer:         conf.Issuer,
		audience:       conf.Audience,
		authExpireIn:   authExpireIn,
		accessExpireIn: accessExpireIn,
		now:            time.Now,

		secret: []byte(conf.Secret),
	}
}

// ToAuthToken issues a short living token that identifies a pending login confirmation.
func (p *JWTProcessor) ToAuthToken(chatID int64, key string) (string, error) {
	return p.sign(tokenKindAuth, fmt.Sprintf("%d:%s", chatID, key), p.authExpireIn)
}

func (p *JWTProcessor) ParseAuthToken(token string) (int64, string, error) {
	subject, err := p.parse(token, tokenKindAuth)
	if err != nil {
		return 0, "", err
	}

	rawChatID, key, ok := strings.Cut(subject, ":")
	if !ok || key == "" {
		return 0, "", fmt.Errorf("parse subject: %w", errInvalidToken)
	}
	chatID, err := strconv.ParseInt(rawChatID, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse chat id: %w", err)
	}
	return chatID, key, nil
}

func (p *JWTProcessor) ToAccessToken(chatID int64) (string, error) {
	return p.sign(tokenKindAccess, strconv.FormatInt(chatID, 10), p.accessExpireIn)
}

func (p *JWTProcessor) ParseAccessToken(token string) (int64, error) {
	subject, err := p.parse(token, tokenKindAccess)
	if err != nil {
		return 0, err
	}

	chatID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse chat id: %w", err)
	}
	return chatID, nil
}

func (p *JWTProcessor) sign(kind tokenKind, subject string, expiresIn time.Duration) (string, error) {
	now := p.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   subject,
			Audience:  p.audience,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProcessor) parse(token string, kind tokenKind) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	if claims.Kind != kind {
		return "", fmt.Errorf("unexpected token kind %q: %w", claims.Kind, errInvalidToken)
	}
	for _, aud := range p.audience {
		if !slices.Contains(claims.Audience, aud) {
			return "", fmt.Errorf("missing audience %q: %w", aud, errInvalidToken)
		}
	}

	return claims.Subject, nil
}
