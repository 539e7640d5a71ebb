package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/response"
)

// 角色
const (
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

const (
	actorIDKey   = "actor_id"
	actorRoleKey = "actor_role"

	// 未配置密钥时（仅 dev）读取的身份头
	devActorHeader = "X-Actor-ID"
	devRoleHeader  = "X-Actor-Role"
)

// Claims 令牌声明，Subject 为操作人 ID
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken 签发 HS256 令牌
func IssueToken(secret, issuer, actorID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken 校验并解析令牌
func ParseToken(secret, issuer, raw string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// JWTAuth 校验 Bearer 令牌并把操作人写入 context；secret 为空时退化为读取 X-Actor-ID 头
func JWTAuth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor, role string
		if secret == "" {
			actor = c.GetHeader(devActorHeader)
			role = c.GetHeader(devRoleHeader)
			if role == "" {
				role = RoleCashier
			}
		} else {
			raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
			if !ok || raw == "" {
				response.Fail(c, http.StatusUnauthorized, "Unauthorized", "missing bearer token", false)
				return
			}
			claims, err := ParseToken(secret, issuer, raw)
			if err != nil {
				logger.Warn(c.Request.Context(), "Rejected token", "error", err)
				response.Fail(c, http.StatusUnauthorized, "Unauthorized", "invalid token", false)
				return
			}
			actor, role = claims.Subject, claims.Role
		}
		if actor == "" {
			response.Fail(c, http.StatusUnauthorized, "Unauthorized", "actor identity is required", false)
			return
		}

		c.Set(actorIDKey, actor)
		c.Set(actorRoleKey, role)
		c.Request = c.Request.WithContext(logger.ContextWithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole 要求当前操作人具备指定角色
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorRole(c) != role {
			response.Fail(c, http.StatusForbidden, "Forbidden", role+" role required", false)
			return
		}
		c.Next()
	}
}

// ActorID 返回已认证的操作人
func ActorID(c *gin.Context) string {
	return c.GetString(actorIDKey)
}

// ActorRole 返回已认证操作人的角色
func ActorRole(c *gin.Context) string {
	return c.GetString(actorRoleKey)
}
