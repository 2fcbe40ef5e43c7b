package utils

import (
	"errors"
	"strconv"
	"time"

	"direct-messenger/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessKey  = "JWT_ACCESS_KEY"
	RefreshKey = "JWT_REFRESH_KEY"
)

var ErrInvalidToken = errors.New("invalid token")

// Tokens struct to describe tokens object.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenMetadata struct to describe metadata in JWT.
type TokenMetadata struct {
	Id  string
	Otp bool
	Exp int64
}

// UserID parses the subject id.
func (m *TokenMetadata) UserID() (uint, error) {
	id, err := strconv.ParseUint(m.Id, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// GenerateTokens issues a new Access & Refresh pair.
// otp marks the pair as waiting for a second factor.
func GenerateTokens(id string, otp bool) (*Tokens, error) {
	accessToken, err := generateToken(id, otp, "JWT_ACCESS_EXPIRE", AccessKey, 15)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateToken(id, otp, "JWT_REFRESH_EXPIRE", RefreshKey, 60*24*7)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:  accessToken,
		Refresh: refreshToken,
	}, nil
}

// RefreshTTL is how long a refresh token stays valid.
func RefreshTTL() time.Duration {
	return time.Minute * time.Duration(config.ConfigInt("JWT_REFRESH_EXPIRE", 60*24*7))
}

func generateToken(id string, otp bool, expire string, key string, fallbackMinutes int) (string, error) {
	minutesCount := config.ConfigInt(expire, fallbackMinutes)

	claims := jwt.MapClaims{}

	claims["id"] = id
	claims["otp"] = otp
	claims["exp"] = time.Now().Add(time.Minute * time.Duration(minutesCount)).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	t, err := token.SignedString([]byte(config.Config(key)))
	if err != nil {
		return "", err
	}

	return t, nil
}

// CheckAndExtractTokenMetadata verifies an HS512 token signed with the key named by key.
func CheckAndExtractTokenMetadata(token string, key string) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Config(key)), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return metadataFromClaims(claims)
}

// ClaimsUserID reads the subject of a token already verified by the JWT middleware.
func ClaimsUserID(token *jwt.Token) (uint, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	meta, err := metadataFromClaims(claims)
	if err != nil {
		return 0, err
	}
	return meta.UserID()
}

func metadataFromClaims(claims jwt.MapClaims) (*TokenMetadata, error) {
	id, ok := claims["id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	otp, _ := claims["otp"].(bool)
	exp, _ := claims["exp"].(float64)

	return &TokenMetadata{
		Id:  id,
		Otp: otp,
		Exp: int64(exp),
	}, nil
}
