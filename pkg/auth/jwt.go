package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string
	ExpireTime time.Duration
}

// Claims 解析后的身份信息
type Claims struct {
	UserEmail string
	Username  string
}

// GenerateJWT 生成 JWT token
func GenerateJWT(userEmail, username string, config *JWTConfig) (string, error) {
	jwtClaims := jwt.MapClaims{
		"user_email": userEmail,
		"username":   username,
		"exp":        time.Now().Add(config.ExpireTime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	return token.SignedString([]byte(config.Secret))
}

// ValidateJWT 校验 JWT token 并返回身份信息
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 校验签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims := &Claims{}
	if email, ok := mapClaims["user_email"].(string); ok {
		claims.UserEmail = email
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if claims.UserEmail == "" {
		return nil, fmt.Errorf("token missing user_email claim")
	}

	return claims, nil
}
