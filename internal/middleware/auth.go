package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"spendsmart/internal/config"
	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errInvalidToken = errors.New("invalid or expired token")

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens with one HMAC secret.
type TokenIssuer struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer from the JWT settings.
func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// GenerateAccessToken generates a short-lived JWT access token for a user.
func (i *TokenIssuer) GenerateAccessToken(user *models.User) (string, error) {
	return i.sign(user, tokenTypeAccess, i.cfg.AccessExpiry)
}

// GenerateRefreshToken generates a long-lived JWT refresh token for a user.
func (i *TokenIssuer) GenerateRefreshToken(user *models.User) (string, error) {
	return i.sign(user, tokenTypeRefresh, i.cfg.RefreshExpiry)
}

func (i *TokenIssuer) sign(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &JWTClaims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.cfg.Issuer,
			Subject:   user.ID,
			ID:        uuid.New(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

func (i *TokenIssuer) parse(tokenString, wantType string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.cfg.Secret), nil
	}, jwt.WithIssuer(i.cfg.Issuer), jwt.WithTimeFunc(i.now))

	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.TokenType != wantType || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken parses a refresh token. Access tokens are rejected.
func (i *TokenIssuer) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return i.parse(tokenString, tokenTypeRefresh)
}

// ValidateAccessToken parses an access token. Refresh tokens are rejected.
func (i *TokenIssuer) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return i.parse(tokenString, tokenTypeAccess)
}

// HashToken returns the SHA-256 hex digest of a token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": apperrors.ErrUnauthorized.Code, "message": message},
	})
}

// AuthMiddleware verifies the bearer access token and sets userID and email in the context.
func AuthMiddleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := issuer.ValidateAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}
