package auth

import (
	"time"

	"lunepoker/cache"
	"lunepoker/models"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// デバイストークンの署名キー。共有バックエンドの認可には使わず、
// ローカルのintent APIの識別にだけ使います。
var JwtKey = []byte("lunepoker_device_key")

const tokenLifetime = 72 * time.Hour

// Identity は匿名サインインで得られる端末のアイデンティティです。
type Identity struct {
	UID   string
	Token string
}

// AnonymousSignIn は端末に紐づく匿名UIDをキャッシュから取得し（無ければ発行して
// 保存し）、署名済みのセッショントークンを返します。UIDは作成したルームの
// createdByとして使われます。
func AnonymousSignIn(kv cache.KV, logger *zap.Logger) (Identity, error) {
	var uid string
	data, err := kv.Load(cache.KeyDeviceUID)
	if err != nil {
		logger.Warn("デバイスUIDの読み込みに失敗しました", zap.Error(err))
	}
	if len(data) > 0 {
		uid = string(data)
	} else {
		uid = uuid.New().String()
		if err := kv.Save(cache.KeyDeviceUID, []byte(uid)); err != nil {
			// 保存できなくても今回のセッションは続行できる
			logger.Warn("デバイスUIDの保存に失敗しました", zap.Error(err))
		}
		logger.Info("匿名デバイスUIDを発行しました", zap.String("uid", uid))
	}

	token, err := GenerateToken(uid)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UID: uid, Token: token}, nil
}

// GenerateToken はUIDを内包したJWTトークンを生成します。
func GenerateToken(uid string) (string, error) {
	claims := &models.DeviceClaims{
		UID: uid,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(tokenLifetime).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JwtKey)
}

// ParseToken はトークンを検証してUIDを返します。
func ParseToken(tokenString string) (string, error) {
	claims := &models.DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return JwtKey, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.NewValidationError("invalid token", jwt.ValidationErrorClaimsInvalid)
	}
	return claims.UID, nil
}

func IsValidToken(tokenString string) (bool, error) {
	if _, err := ParseToken(tokenString); err != nil {
		return false, err
	}
	return true, nil
}
