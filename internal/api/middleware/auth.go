package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	ctxUserID  = "user_id"
	ctxIDNum   = "idnum"
	ctxIsAdmin = "is_admin"
)

// Claims — содержимое JWT.
type Claims struct {
	UserID  string `json:"user_id"`
	IDNum   int64  `json:"idnum"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWT выпускает и проверяет токены HS256.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT создаёт менеджер токенов.
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken выпускает токен пользователю.
func (m *JWT) GenerateToken(userID uuid.UUID, idnum int64, isAdmin bool) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		UserID:  userID.String(),
		IDNum:   idnum,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, expires, nil
}

// Parse проверяет подпись и срок токена.
func (m *JWT) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Auth требует заголовок Authorization: Bearer <token>.
func (m *JWT) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		claims, err := m.Parse(parts[1])
		if err != nil {
			log.WithError(err).Debug("Невалидный токен")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(ctxUserID, id)
		c.Set(ctxIDNum, claims.IDNum)
		c.Set(ctxIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// UserID извлекает id пользователя из контекста.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// MustUserID — для обработчиков за Auth(). Без токена туда не попасть.
func MustUserID(c *gin.Context) uuid.UUID {
	id, ok := UserID(c)
	if !ok {
		panic("middleware: user_id missing, route is not behind Auth()")
	}
	return id
}

// IsAdmin — флаг админа из токена.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
